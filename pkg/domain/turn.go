package domain

// OutboundMessage is one rendered message the channel adapter should
// deliver. Order within a turn is the node-traversal order.
type OutboundMessage struct {
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
}

// OptionPayload carries a node's option set for the channel to render
// (buttons, list rows, category pickers).
type OptionPayload struct {
	NodeID  string   `json:"node_id"`
	Kind    NodeKind `json:"kind"`
	Options []Option `json:"options"`
}

// DebugState is a small diagnostic view returned with every turn.
type DebugState struct {
	CurrentNodeID string `json:"current_node_id"`
	Waiting       bool   `json:"waiting"`
	Ended         bool   `json:"ended"`
	Hops          int    `json:"hops"`
	RetryCount    int    `json:"retry_count"`
}

// TurnResult is everything one processed inbound message produced.
// SessionKey echoes the key the turn ran under, including a generated
// session id when the request carried none.
type TurnResult struct {
	SessionKey SessionKey        `json:"session_key"`
	Messages   []OutboundMessage `json:"messages"`
	Options    []OptionPayload   `json:"options,omitempty"`
	Debug      DebugState        `json:"debug"`
}
