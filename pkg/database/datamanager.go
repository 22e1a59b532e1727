package database

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	MaxCacheSize int
}

// CacheManager is an LRU shared by every DataManager.
type CacheManager struct {
	cache     map[string]*list.Element
	cacheList *list.List
	mu        sync.Mutex
}

type cacheEntry struct {
	key   string
	value interface{}
}

var globalCacheManager = &CacheManager{
	cache:     make(map[string]*list.Element),
	cacheList: list.New(),
}

func (c *CacheManager) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	c.cacheList.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value, true
}

func (c *CacheManager) put(key string, value interface{}, max int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		elem.Value = &cacheEntry{key: key, value: value}
		c.cacheList.MoveToFront(elem)
		return
	}
	c.cache[key] = c.cacheList.PushFront(&cacheEntry{key: key, value: value})

	if max > 0 && c.cacheList.Len() > max {
		if oldest := c.cacheList.Back(); oldest != nil {
			delete(c.cache, oldest.Value.(*cacheEntry).key)
			c.cacheList.Remove(oldest)
		}
	}
}

func (c *CacheManager) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.cacheList.Remove(elem)
		delete(c.cache, key)
	}
}

func (c *CacheManager) removePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, elem := range c.cache {
		if strings.HasPrefix(key, prefix) {
			c.cacheList.Remove(elem)
			delete(c.cache, key)
		}
	}
}

// DataManager provides cached access to a MongoDB collection. Writes issued
// while the database is offline are queued and replayed on reconnect.
type DataManager[T any] struct {
	collectionName string
	dbInstance     *Database
	options        DataManagerOptions
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{
		MaxCacheSize: 1000,
	}
}

// NewDataManager creates a new DataManager for a collection
func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
	}

	return &DataManager[T]{
		collectionName: collectionName,
		dbInstance:     db,
		options:        dmOptions,
	}
}

// collection returns the live collection or nil while offline.
func (dm *DataManager[T]) collection() *mongo.Collection {
	if !dm.dbInstance.Connected() {
		return nil
	}
	return dm.dbInstance.GetCollection(dm.collectionName)
}

// generateCacheKey creates a deterministic key from a query by sorting its
// fields.
func (dm *DataManager[T]) generateCacheKey(query bson.M) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}

	return fmt.Sprintf("%s:{%s}", dm.collectionName, strings.Join(parts, ","))
}

// handleError flags the connection as lost when the driver reports a
// network problem.
func (dm *DataManager[T]) handleError(err error) {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		dm.dbInstance.MarkDisconnected()
	}
}

// Get retrieves a document from cache or database. It returns (nil, nil)
// when nothing matches.
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	cacheKey := dm.generateCacheKey(query)
	if cached, ok := globalCacheManager.get(cacheKey); ok {
		return cached.(*T), nil
	}

	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	var result T
	err := col.FindOne(ctx, query).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		dm.handleError(err)
		logger.Warn(fmt.Sprintf("Fallo al leer de la DB (%s)", dm.collectionName), "DataManager")
		return nil, err
	}

	globalCacheManager.put(cacheKey, &result, dm.options.MaxCacheSize)
	return &result, nil
}

// GetAll retrieves all documents matching a query. Results are not cached.
func (dm *DataManager[T]) GetAll(ctx context.Context, query bson.M, opts ...*options.FindOptions) ([]T, error) {
	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	cursor, err := col.Find(ctx, query, opts...)
	if err != nil {
		dm.handleError(err)
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := make([]T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			logger.Warn(fmt.Sprintf("Documento inválido en '%s': %v", dm.collectionName, err), "DataManager")
			continue
		}
		results = append(results, doc)
	}

	return results, cursor.Err()
}

// Set upserts the fields of data on the document matching query.
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data interface{}) error {
	cacheKey := dm.generateCacheKey(query)
	queued := QueuedOperation{CollectionName: dm.collectionName, Query: query, Operation: opSet, Data: data}

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando escritura para '%s'", dm.collectionName), "DataManager")
		globalCacheManager.remove(cacheKey)
		dm.dbInstance.AddToWriteQueue(queued)
		return nil
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	err := col.FindOneAndUpdate(ctx, query, bson.M{"$set": data}, opts).Decode(&result)
	if err != nil {
		dm.handleError(err)
		globalCacheManager.remove(cacheKey)
		logger.Error("Error en 'set' con DB conectada. Encolando por seguridad.", "DataManager")
		dm.dbInstance.AddToWriteQueue(queued)
		return err
	}

	globalCacheManager.put(cacheKey, &result, dm.options.MaxCacheSize)
	return nil
}

// Insert appends a new document.
func (dm *DataManager[T]) Insert(ctx context.Context, doc *T) error {
	col := dm.collection()
	if col == nil {
		return ErrNotConnected
	}
	if _, err := col.InsertOne(ctx, doc); err != nil {
		dm.handleError(err)
		return err
	}
	return nil
}

// Update applies a raw update document and reports whether a document
// matched. It is not queued while offline because callers rely on the match
// result.
func (dm *DataManager[T]) Update(ctx context.Context, query bson.M, update bson.M) (bool, error) {
	col := dm.collection()
	if col == nil {
		return false, ErrNotConnected
	}
	res, err := col.UpdateOne(ctx, query, update)
	if err != nil {
		dm.handleError(err)
		return false, err
	}
	globalCacheManager.removePrefix(dm.collectionName + ":")
	return res.MatchedCount > 0, nil
}

// Delete removes the document matching query and reports whether one was
// removed. While offline the delete is queued and reported as done.
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M) (bool, error) {
	globalCacheManager.remove(dm.generateCacheKey(query))
	queued := QueuedOperation{CollectionName: dm.collectionName, Query: query, Operation: opDelete}

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando eliminación para '%s'", dm.collectionName), "DataManager")
		dm.dbInstance.AddToWriteQueue(queued)
		return true, nil
	}

	res, err := col.DeleteOne(ctx, query)
	if err != nil {
		dm.handleError(err)
		logger.Error("Error en 'delete' con DB conectada. Encolando por seguridad.", "DataManager")
		dm.dbInstance.AddToWriteQueue(queued)
		return false, err
	}

	return res.DeletedCount > 0, nil
}

// ClearCache clears the entire cache
func (dm *DataManager[T]) ClearCache() {
	globalCacheManager.mu.Lock()
	defer globalCacheManager.mu.Unlock()

	globalCacheManager.cache = make(map[string]*list.Element)
	globalCacheManager.cacheList = list.New()
}

// CacheSize returns the current cache size
func (dm *DataManager[T]) CacheSize() int {
	globalCacheManager.mu.Lock()
	defer globalCacheManager.mu.Unlock()
	return globalCacheManager.cacheList.Len()
}
