package domain

// NodeKind is the closed set of node behaviors. Authoring tools use a
// variety of synonymous type names ("messageNode", "text", ...); the
// compiler normalizes all of them into one of these before execution,
// so the runtime never dispatches on raw strings.
type NodeKind string

const (
	// KindStart marks the entry point; it emits nothing and advances.
	KindStart NodeKind = "start"
	// KindMessage emits content. It auto-advances unless Captures is set.
	KindMessage NodeKind = "message"
	// KindInput emits a prompt and waits for free-text, validated input.
	KindInput NodeKind = "input"
	// KindButtons emits a prompt plus a small option set and waits.
	KindButtons NodeKind = "buttons"
	// KindList emits a prompt plus a (possibly long) option list and waits.
	KindList NodeKind = "list"
	// KindCategories emits a prompt plus category options and waits.
	KindCategories NodeKind = "categories"
	// KindCondition routes along the first outgoing edge whose condition
	// holds. Never waits, never emits.
	KindCondition NodeKind = "condition"
	// KindAction fires a funnel stage hook and advances. Never waits.
	KindAction NodeKind = "action"
	// KindEnd terminates the conversation.
	KindEnd NodeKind = "end"
)

// Selective returns true for kinds that present an option set and wait
// for the user to pick one.
func (k NodeKind) Selective() bool {
	return k == KindButtons || k == KindList || k == KindCategories
}

// Option is one selectable choice of a buttons/list/categories node.
type Option struct {
	// Index is the 1-based position shown to the user.
	Index int `json:"index"`
	// DisplayText is the human label; subject to variable resolution.
	DisplayText string `json:"display_text"`
	// MachineValue is what gets captured when the option is picked.
	MachineValue string `json:"machine_value"`
	// TargetNodeOverride, when set, wins over the node's default edge.
	TargetNodeOverride string `json:"target_node_override,omitempty"`
}

// Node is one atomic unit of conversation logic.
type Node struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`

	// Content is the message body or prompt. May contain {{tokens}}.
	Content string `json:"content,omitempty"`

	// MediaURL is an optional templated attachment URL.
	MediaURL string `json:"media_url,omitempty"`

	// Captures marks a message node that waits for the next inbound
	// message instead of auto-advancing.
	Captures bool `json:"captures,omitempty"`

	// ExpectedVariable names the session variable the captured input
	// (or matched option value) is stored under.
	ExpectedVariable string `json:"expected_variable,omitempty"`

	// ValidationRule gates input nodes: "nonempty", "email", "phone",
	// "number" or "regex:<pattern>". Empty means accept anything.
	ValidationRule string `json:"validation_rule,omitempty"`

	// RetryMessage is emitted when validation or selection fails.
	RetryMessage string `json:"retry_message,omitempty"`

	// Options is the selection set for buttons/list/categories nodes.
	Options []Option `json:"options,omitempty"`

	// NumberingEnabled allows replying with the option's 1-based index.
	NumberingEnabled bool `json:"numbering_enabled,omitempty"`

	// AllowFreeText lets unmatched input through as an ad-hoc option.
	AllowFreeText bool `json:"allow_free_text,omitempty"`

	// StageHook identifies the funnel stage an action node reports.
	StageHook string `json:"stage_hook,omitempty"`
}
