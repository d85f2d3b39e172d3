package convoflow

// Version is the library version, overridable at build time with
// -ldflags "-X github.com/avelardos/convoflow.Version=...".
var Version = "0.1.0"
