package observer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ScreeningEvent represents a step in the life of one screening
type ScreeningEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	TestType       string                 `json:"test_type"`
	UserID         string                 `json:"user_id,omitempty"`
	ImageRef       string                 `json:"image_ref,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Score          float64                `json:"score,omitempty"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of screening event
type EventType string

const (
	// ScreeningStarted when a photograph is accepted for screening
	ScreeningStarted EventType = "screening_started"
	// ScreeningCompleted when a diagnosis has been produced and stored
	ScreeningCompleted EventType = "screening_completed"
	// ScreeningFailed when the screening ends with an error
	ScreeningFailed EventType = "screening_failed"
	// ImageFetched when the photograph is successfully loaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when the photograph could not be loaded
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ScreeningEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ScreeningEvent)
}

// LoggingObserver logs screening events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles screening events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ScreeningEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"test_type":       event.TestType,
		"image_ref":       event.ImageRef,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.UserID != "" {
		fields["user_id"] = event.UserID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ScreeningStarted:
		entry.Info("Screening started")
	case ScreeningCompleted:
		entry.WithField("score", event.Score).Info("Screening completed")
	case ScreeningFailed:
		entry.Error("Screening failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	default:
		entry.Info("Screening event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// TestTypeMetrics are the counters kept per test type
type TestTypeMetrics struct {
	Started          int64         `json:"started"`
	Completed        int64         `json:"completed"`
	Failed           int64         `json:"failed"`
	FetchFailures    int64         `json:"fetch_failures"`
	TotalProcessing  time.Duration `json:"-"`
	AvgProcessingSec float64       `json:"avg_processing_seconds"`
	ScoreSum         float64       `json:"-"`
	AvgScore         float64       `json:"avg_score"`
}

// MetricsObserver collects counters from screening events
type MetricsObserver struct {
	mu     sync.RWMutex
	byType map[string]*TestTypeMetrics
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{byType: make(map[string]*TestTypeMetrics)}
}

// OnEvent handles screening events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ScreeningEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, ok := o.byType[event.TestType]
	if !ok {
		m = &TestTypeMetrics{}
		o.byType[event.TestType] = m
	}

	switch event.EventType {
	case ScreeningStarted:
		m.Started++
	case ScreeningCompleted:
		m.Completed++
		m.TotalProcessing += event.ProcessingTime
		m.ScoreSum += event.Score
	case ScreeningFailed:
		m.Failed++
	case ImageFetchFailed:
		m.FetchFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a snapshot of the counters keyed by test type
func (o *MetricsObserver) GetMetrics() map[string]TestTypeMetrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]TestTypeMetrics, len(o.byType))
	for name, m := range o.byType {
		snapshot := *m
		if m.Completed > 0 {
			snapshot.AvgProcessingSec = (m.TotalProcessing / time.Duration(m.Completed)).Seconds()
			snapshot.AvgScore = m.ScoreSum / float64(m.Completed)
		}
		out[name] = snapshot
	}
	return out
}

// TestTypes lists the test types seen so far, sorted
func (o *MetricsObserver) TestTypes() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.byType))
	for name := range o.byType {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ScreeningEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Observers run concurrently and must not hold up the request
	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(context.WithoutCancel(ctx), event)
		}(observer)
	}
}

// Wait blocks until every event delivered so far has been handled
func (p *EventPublisher) Wait() {
	p.wg.Wait()
}
