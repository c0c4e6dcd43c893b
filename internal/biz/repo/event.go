package repo

// EventPublisher fans out pipeline events to external subscribers
type EventPublisher interface {
	Publish(subject string, payload any) error
	Close()
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) error { return nil }
func (NopPublisher) Close()                    {}
