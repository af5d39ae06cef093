package models

// All enumerates every persisted model, in migration order.
var All = []interface{}{
	&PlatformPieceConfig{},
	&TriggerRegistration{},
}
