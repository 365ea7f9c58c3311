// Package eventbus fans feed events out to every server instance. Events
// are delivered to local subscribers immediately and, when a MongoDB
// collection is configured, inserted there so that other instances pick
// them up through a change stream.
package eventbus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"game-ladder/internal/models"
)

// envelope is the document stored in the feed_events collection.
type envelope struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OriginMachineID string             `bson:"originMachineId"`
	Event           models.FeedEvent   `bson:"event"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// DeliverFunc hands an event to the subscribers connected to this instance.
type DeliverFunc func(event models.FeedEvent)

type EventBus struct {
	machineID    string
	collection   *mongo.Collection
	deliverLocal DeliverFunc
	logger       *zap.Logger

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

func generateMachineID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// New creates an EventBus. With a nil collection it runs in local-only
// mode: events reach local subscribers and nothing is published.
func New(collection *mongo.Collection, deliverLocal DeliverFunc, logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		machineID:    generateMachineID(),
		collection:   collection,
		deliverLocal: deliverLocal,
		logger:       logger.Named("eventbus"),
	}
}

func (eb *EventBus) MachineID() string {
	return eb.machineID
}

// Start begins the change stream watcher in a background goroutine.
func (eb *EventBus) Start() {
	if eb.collection == nil {
		eb.logger.Info("no collection configured, running in local-only mode")
		return
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb.cancelFunc = cancel
	eb.running = true
	eb.wg.Add(1)

	go eb.watchLoop(ctx)
	eb.logger.Info("started", zap.String("machineId", eb.machineID))
}

// Stop cancels the watcher and waits for it to exit.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if !eb.running {
		return
	}
	eb.running = false
	if eb.cancelFunc != nil {
		eb.cancelFunc()
	}
	eb.wg.Wait()
	eb.logger.Info("stopped")
}

// Notify delivers event locally and publishes it for other instances.
// Publish errors are logged, never returned.
func (eb *EventBus) Notify(event models.FeedEvent) {
	if eb.deliverLocal != nil {
		eb.deliverLocal(event)
	}
	if eb.collection == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	doc := envelope{
		OriginMachineID: eb.machineID,
		Event:           event,
		CreatedAt:       time.Now(),
	}
	if _, err := eb.collection.InsertOne(ctx, doc); err != nil {
		eb.logger.Warn("failed to publish feed event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

// watchLoop runs the change stream, reconnecting after errors.
func (eb *EventBus) watchLoop(ctx context.Context) {
	defer eb.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		err := eb.watch(ctx)
		if ctx.Err() != nil {
			return
		}
		eb.logger.Warn("change stream error, reconnecting in 2s", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (eb *EventBus) watch(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "insert"},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := eb.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer cs.Close(ctx)

	for cs.Next(ctx) {
		var change struct {
			FullDocument envelope `bson:"fullDocument"`
		}
		if err := cs.Decode(&change); err != nil {
			eb.logger.Warn("failed to decode change event", zap.Error(err))
			continue
		}
		eb.receive(change.FullDocument)
	}

	return cs.Err()
}

// receive delivers an event published by another instance. Events from this
// instance were already delivered by Notify.
func (eb *EventBus) receive(doc envelope) {
	if doc.OriginMachineID == eb.machineID {
		return
	}
	if eb.deliverLocal != nil {
		eb.deliverLocal(doc.Event)
	}
}
