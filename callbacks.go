package nvnmos

// ActivationCallback notifies the host whenever a sender or receiver
// crosses the active boundary: sdpText non-empty means now active,
// empty means now inactive (spec section 6 "activation callback").
// It is invoked synchronously from inside the engine's lock — hosts
// must not call back into the facade from within it.
type ActivationCallback func(internalID string, sdpText string)

// LogCallback delivers one log line to the host: a CSV category list,
// a numeric severity, and the message text (spec section 6 "Exit
// codes & logging"). The severity values match internal/logger's
// scale (fatal=40 ... devel=-40); Create wires this in as that
// logger's Callback so every package's structured logs also reach it.
type LogCallback func(categories string, level int, text string)
