package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Queued operation kinds.
const (
	opSet    = "set"
	opInsert = "insert"
	opDelete = "delete"
)

// QueuedOperation represents a write that could not reach MongoDB and will be
// replayed once the connection comes back.
type QueuedOperation struct {
	CollectionName string
	Query          bson.M
	Operation      string
	Data           interface{}
}

// Database manages the MongoDB connection, the reconnect loop and the offline
// write queue.
type Database struct {
	client          *mongo.Client
	db              *mongo.Database
	mongoURL        string
	dbName          string
	isConnected     bool
	writeQueue      []QueuedOperation
	reconnectTicker *time.Ticker
	reconnectEvery  time.Duration
	stopReconnect   chan struct{}
	stopOnce        sync.Once
	mu              sync.RWMutex
	queueMu         sync.Mutex
	collections     map[string]*mongo.Collection
}

// NewDatabase creates a disconnected Database instance.
func NewDatabase(mongoURL, dbName string) *Database {
	return &Database{
		mongoURL:       mongoURL,
		dbName:         dbName,
		writeQueue:     make([]QueuedOperation, 0),
		reconnectEvery: 15 * time.Second,
		stopReconnect:  make(chan struct{}),
		collections:    make(map[string]*mongo.Collection),
	}
}

// Connect establishes a connection to MongoDB. On failure it starts the
// reconnect loop and returns the error; the store keeps working in offline
// mode meanwhile.
func (d *Database) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isConnected {
		return nil
	}

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(d.mongoURL).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Critical("Fallo al conectar con la base de datos.", "DB")
		d.startReconnectLocked()
		return err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Critical("Fallo al verificar conexión con la base de datos.", "DB")
		_ = client.Disconnect(ctx)
		d.startReconnectLocked()
		return err
	}

	d.client = client
	d.db = client.Database(d.dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.isConnected = true

	logger.Success("Conectado exitosamente a la base de datos.", "DB")

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}

	go d.syncOfflineWrites()
	return nil
}

// MarkDisconnected switches the store to offline mode after an operation
// failed with a network error.
func (d *Database) MarkDisconnected() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isConnected {
		return
	}
	d.isConnected = false
	logger.Warn("Se perdió la conexión con la base de datos. Activando modo offline.", "DB")
	d.startReconnectLocked()
}

// startReconnectLocked must be called with d.mu held.
func (d *Database) startReconnectLocked() {
	if d.reconnectTicker != nil {
		return
	}
	ticker := time.NewTicker(d.reconnectEvery)
	d.reconnectTicker = ticker
	go func() {
		for {
			select {
			case <-ticker.C:
				logger.Info("Intentando reconectar a la base de datos...", "DB")
				if err := d.Connect(); err == nil {
					return
				}
			case <-d.stopReconnect:
				return
			}
		}
	}()
}

// Connected reports whether MongoDB is currently reachable.
func (d *Database) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isConnected
}

// Disconnect stops the reconnect loop and closes the client.
func (d *Database) Disconnect() error {
	d.stopOnce.Do(func() { close(d.stopReconnect) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}

	if d.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.client.Disconnect(ctx); err != nil {
			return err
		}
		d.isConnected = false
		logger.Warn("La base de datos ha sido desconectada", "DB")
	}
	return nil
}

// Ping measures the database response time
func (d *Database) Ping() (time.Duration, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.isConnected || d.client == nil {
		return 0, ErrNotConnected
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := d.client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns the database connection status
func (d *Database) GetStatus() (string, bool) {
	latency, err := d.Ping()
	if err != nil {
		return "🔴 | Desconectado", false
	}
	return fmt.Sprintf("🟢 | En linea (%dms)", latency.Milliseconds()), true
}

// GetCollection returns a MongoDB collection, or nil while offline.
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	if col, exists := d.collections[name]; exists {
		d.mu.RUnlock()
		return col
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	col := d.db.Collection(name)
	d.collections[name] = col
	return col
}

// AddToWriteQueue adds an operation to the offline write queue
func (d *Database) AddToWriteQueue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.writeQueue = append(d.writeQueue, op)
}

// QueueLength returns the number of writes waiting for the connection.
func (d *Database) QueueLength() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.writeQueue)
}

// syncOfflineWrites replays queued operations in order.
func (d *Database) syncOfflineWrites() {
	d.queueMu.Lock()
	if len(d.writeQueue) == 0 {
		d.queueMu.Unlock()
		return
	}

	logger.System(fmt.Sprintf("Sincronizando %d operaciones pendientes con la DB...", len(d.writeQueue)), "DB-Sync")

	operations := make([]QueuedOperation, len(d.writeQueue))
	copy(operations, d.writeQueue)
	d.writeQueue = make([]QueuedOperation, 0)
	d.queueMu.Unlock()

	failedOps := make([]QueuedOperation, 0)

	for _, op := range operations {
		col := d.GetCollection(op.CollectionName)
		if col == nil {
			failedOps = append(failedOps, op)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		var err error
		switch op.Operation {
		case opSet:
			_, err = col.UpdateOne(ctx, op.Query, bson.M{"$set": op.Data}, options.Update().SetUpsert(true))
		case opInsert:
			_, err = col.InsertOne(ctx, op.Data)
		case opDelete:
			_, err = col.DeleteOne(ctx, op.Query)
		}

		cancel()

		if err != nil {
			logger.Error(fmt.Sprintf("Error al sincronizar operación para '%s'. La operación se volverá a encolar.", op.CollectionName), "DB-Sync")
			failedOps = append(failedOps, op)
		}
	}

	if len(failedOps) > 0 {
		d.queueMu.Lock()
		d.writeQueue = append(failedOps, d.writeQueue...)
		d.queueMu.Unlock()
		logger.Warn(fmt.Sprintf("%d operaciones no pudieron sincronizarse y se reintentarán.", len(failedOps)), "DB-Sync")
	} else {
		logger.Success("Sincronización completada exitosamente.", "DB-Sync")
	}
}
