package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
)

// LogChannelCache keeps every (guild, log type) → channel mapping in memory.
// Event handlers hit it on every message edit or member join, so lookups
// never touch the store. Writes go through the cache to keep it coherent.
type LogChannelCache struct {
	store       Store
	entries     map[string]string
	mu          sync.RWMutex
	stopRefresh chan struct{}
	refreshing  bool
}

// NewLogChannelCache creates an empty cache over store.
func NewLogChannelCache(store Store) *LogChannelCache {
	return &LogChannelCache{
		store:       store,
		entries:     make(map[string]string),
		stopRefresh: make(chan struct{}),
	}
}

func logKey(guildID, logType string) string {
	return guildID + ":" + logType
}

// Refresh reloads every mapping from the store.
func (c *LogChannelCache) Refresh(ctx context.Context) error {
	configs, err := c.store.ListAllLogChannels(ctx)
	if err != nil {
		logger.Error("LogChannelCache: Error cargando canales de logs: "+err.Error(), "LogCache")
		return err
	}

	entries := make(map[string]string, len(configs))
	for _, cfg := range configs {
		entries[logKey(cfg.GuildID, cfg.LogType)] = cfg.ChannelID
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	logger.Debug(fmt.Sprintf("LogChannelCache: %d canales en caché", len(entries)), "LogCache")
	return nil
}

// StartAutoRefresh reloads the cache every interval until StopAutoRefresh.
func (c *LogChannelCache) StartAutoRefresh(interval time.Duration) {
	c.mu.Lock()
	if c.refreshing {
		close(c.stopRefresh)
	}
	c.refreshing = true
	c.stopRefresh = make(chan struct{})
	stopChan := c.stopRefresh
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = c.Refresh(ctx)
				cancel()
			case <-stopChan:
				return
			}
		}
	}()
}

// StopAutoRefresh stops the automatic cache refresh
func (c *LogChannelCache) StopAutoRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshing {
		close(c.stopRefresh)
		c.refreshing = false
	}
}

// Channel returns the channel configured for logType in guildID.
func (c *LogChannelCache) Channel(guildID, logType string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.entries[logKey(guildID, logType)]
	return ch, ok
}

// Set stores the mapping and updates the cache.
func (c *LogChannelCache) Set(ctx context.Context, cfg models.LogConfig) error {
	if err := c.store.SetLogChannel(ctx, cfg); err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[logKey(cfg.GuildID, cfg.LogType)] = cfg.ChannelID
	c.mu.Unlock()
	return nil
}

// Remove deletes the mapping from the store and the cache.
func (c *LogChannelCache) Remove(ctx context.Context, guildID, logType string) (bool, error) {
	removed, err := c.store.DeleteLogChannel(ctx, guildID, logType)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	delete(c.entries, logKey(guildID, logType))
	c.mu.Unlock()
	return removed, nil
}

// Size returns the number of entries in the cache
func (c *LogChannelCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
