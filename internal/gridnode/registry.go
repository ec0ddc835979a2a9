// Package gridnode is a minimal grid node: it hosts browser sessions and
// serves their download directories and DevTools endpoints over HTTP.
package gridnode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/gridharness/internal/browser"
	"github.com/shehryarbajwa/gridharness/internal/config"
	"github.com/shehryarbajwa/gridharness/pkg/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoCapacity      = errors.New("node has no free session slot")
)

// Registry tracks the sessions hosted by this node.
type Registry struct {
	sessions  sync.Map // id -> *models.NodeSession
	slots     *semaphore.Weighted
	launcher  browser.Launcher
	root      string
	advertise string
	logger    *zap.Logger
}

// NewRegistry creates the downloads root and returns an empty registry.
func NewRegistry(cfg config.NodeConfig, launcher browser.Launcher, logger *zap.Logger) (*Registry, error) {
	if cfg.MaxSessions < 1 {
		return nil, fmt.Errorf("max sessions must be positive, got %d", cfg.MaxSessions)
	}
	if err := os.MkdirAll(cfg.DownloadsRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads root: %w", err)
	}

	return &Registry{
		slots:     semaphore.NewWeighted(int64(cfg.MaxSessions)),
		launcher:  launcher,
		root:      cfg.DownloadsRoot,
		advertise: cfg.AdvertiseAddr,
		logger:    logger,
	}, nil
}

// Create launches a browser for the requested capabilities. The returned
// capabilities advertise this node's DevTools relay as se:cdp.
func (r *Registry) Create(ctx context.Context, requested models.Capabilities) (*models.NodeSession, error) {
	if !r.slots.TryAcquire(1) {
		return nil, ErrNoCapacity
	}

	id := uuid.New().String()
	dir := filepath.Join(r.root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.slots.Release(1)
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	tz, _ := requested.String(models.CapTimeZone)
	instance, err := r.launcher.Launch(ctx, browser.LaunchOptions{SessionID: id, DownloadsDir: dir, TimeZone: tz})
	if err != nil {
		os.RemoveAll(dir)
		r.slots.Release(1)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	caps := models.Capabilities{}
	for k, v := range requested {
		caps[k] = v
	}
	if _, ok := caps[models.CapBrowserName]; !ok {
		caps[models.CapBrowserName] = "chrome"
	}
	if version := browserVersion(instance.Version); version != "" {
		caps[models.CapBrowserVersion] = version
		caps[models.CapCDPVersion] = version
	}
	// The node has no recorder; answer with what the session actually gets.
	if record, _ := caps[models.CapRecordVideo].(bool); record {
		r.logger.Warn("video recording is not supported by this node, session will not be recorded",
			zap.String("session", id))
	}
	if _, ok := caps[models.CapRecordVideo]; ok {
		caps[models.CapRecordVideo] = false
	}
	caps[models.CapCDP] = fmt.Sprintf("ws://%s/session/%s/se/cdp", r.advertise, id)
	caps[models.CapDownloads] = true

	sess := &models.NodeSession{
		ID:           id,
		Status:       models.StatusRunning,
		StartedAt:    time.Now(),
		Capabilities: caps,
		DevToolsURL:  instance.DevToolsURL,
		ContainerID:  instance.ContainerID,
		DownloadsDir: dir,
	}
	r.sessions.Store(id, sess)

	r.logger.Info("session created", zap.String("session", id), zap.String("container", instance.ContainerID))
	return sess, nil
}

// Get returns a running session.
func (r *Registry) Get(id string) (*models.NodeSession, error) {
	value, ok := r.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return value.(*models.NodeSession), nil
}

// List returns all sessions ordered by start time.
func (r *Registry) List() []*models.NodeSession {
	var sessions []*models.NodeSession
	r.sessions.Range(func(_, value interface{}) bool {
		sessions = append(sessions, value.(*models.NodeSession))
		return true
	})
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions
}

// Delete stops the browser, removes the downloads directory and frees the slot.
func (r *Registry) Delete(ctx context.Context, id string) error {
	value, ok := r.sessions.LoadAndDelete(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess := value.(*models.NodeSession)
	defer r.slots.Release(1)

	var errs []error
	if err := r.launcher.Stop(ctx, sess.ContainerID); err != nil {
		sess.Status = models.StatusError
		errs = append(errs, err)
	} else {
		sess.Status = models.StatusCompleted
	}
	if err := os.RemoveAll(sess.DownloadsDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove downloads directory: %w", err))
	}

	r.logger.Info("session deleted", zap.String("session", id), zap.String("status", string(sess.Status)))
	return errors.Join(errs...)
}

// Shutdown deletes every session.
func (r *Registry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, sess := range r.List() {
		if err := r.Delete(ctx, sess.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// browserVersion strips the product name from a /json/version Browser field
// such as "HeadlessChrome/130.0.6723.58".
func browserVersion(product string) string {
	if i := strings.LastIndex(product, "/"); i >= 0 {
		return product[i+1:]
	}
	return product
}
