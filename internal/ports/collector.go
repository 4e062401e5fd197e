package ports

import "github.com/ghalamif/vesagent/internal/domain"

// Ingestor receives samples and notifications from a collector.
type Ingestor interface {
	OnSample(vl *domain.ValueList)
	OnNotification(n *domain.Notification)
}

// Collector pushes observations from an external source into an Ingestor until stopped.
type Collector interface {
	Start(ing Ingestor) error
	Stop() error
}
