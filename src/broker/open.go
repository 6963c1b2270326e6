package broker

import (
	"buildwatch-agent/src/logger"
)

// Options selects a broker implementation. Redpanda wins over NATS; with
// neither configured an in-memory broker is used.
type Options struct {
	RedpandaBrokers []string
	NATSURL         string
}

// Open returns the broker selected by opts and a short name for logging.
func Open(opts Options, log logger.Logger) (Broker, string, error) {
	switch {
	case len(opts.RedpandaBrokers) > 0:
		b, err := NewRedpandaBroker(opts.RedpandaBrokers, log)
		if err != nil {
			return nil, "redpanda", err
		}
		return b, "redpanda", nil
	case opts.NATSURL != "":
		b, err := NewNATSBroker(opts.NATSURL, log)
		if err != nil {
			return nil, "nats", err
		}
		return b, "nats", nil
	default:
		return NewInMemoryBroker(), "memory", nil
	}
}
