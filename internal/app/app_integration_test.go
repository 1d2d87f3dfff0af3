//go:build integration

package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/email"
	"github.com/Sokol111/newsletter-publisher/internal/httpapi"
	"github.com/Sokol111/newsletter-publisher/internal/issue"
	"github.com/Sokol111/newsletter-publisher/internal/outbox"
	"github.com/Sokol111/newsletter-publisher/internal/schema"
	"github.com/Sokol111/newsletter-publisher/internal/subscriber"
	"github.com/Sokol111/newsletter-publisher/pkg/core"
	"github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/Sokol111/newsletter-publisher/pkg/observability"
	"github.com/Sokol111/newsletter-publisher/pkg/security"
	"github.com/Sokol111/newsletter-publisher/pkg/security/token"
	"github.com/Sokol111/newsletter-publisher/pkg/testutil/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/fx/fxtest"
)

type collectingSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (s *collectingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *collectingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.To)
	}
	return out
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestApp_PublishAndDeliver(t *testing.T) {
	// Given a database with three confirmed subscribers
	ctx := context.Background()
	c, err := container.StartMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	conn, err := c.OpenPersistence(ctx, "e2e", schema.Source())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	_, err = conn.GetCollection(subscriber.CollectionName).InsertMany(ctx, []any{
		bson.M{"email": "ann@example.com", "status": subscriber.StatusConfirmed},
		bson.M{"email": "bob@example.com", "status": subscriber.StatusConfirmed},
		bson.M{"email": "cid@example.com", "status": subscriber.StatusConfirmed},
		bson.M{"email": "dan@example.com", "status": "pending_confirmation"},
	})
	require.NoError(t, err)

	port := freePort(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
server:
  port: %d
mongo:
  connection-string: %q
  database: e2e
delivery:
  concurrency: 2
  idle-interval: 20ms
  error-interval: 100ms
`, port, c.ConnectionString)), 0o644))

	sender := &collectingSender{}
	app := fxtest.New(t, Modules(
		WithAPI(),
		WithDeliveryWorker(),
		WithCoreOptions(
			core.WithAppConfig(config.AppConfig{
				ServiceName: "newsletter", ServiceVersion: "e2e",
				Environment: config.EnvDevelopment, InstanceID: "e2e-1",
			}),
			core.WithoutEnvFile(),
			core.WithConfigPath(cfgPath),
		),
		WithObservabilityOptions(observability.WithoutTracing(), observability.WithoutMetrics()),
		WithSecurityOptions(security.WithTestTokens()),
		WithEmailOptions(email.WithSender(sender)),
	))
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health/live")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	tok := token.GenerateTestToken("editor-1", httpapi.PermissionPublish)
	publish := func(title string) *http.Response {
		form := url.Values{
			"title": {title}, "text": {"plain"}, "html": {"<p>html</p>"}, "idempotency_key": {"e2e-key"},
		}
		req, err := http.NewRequest(http.MethodPost, base+"/admin/newsletters", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := client.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	// When the same command is submitted twice
	first := publish("Weekly")
	second := publish("Weekly, edited")

	// Then both get the same redirect
	assert.Equal(t, http.StatusSeeOther, first.StatusCode)
	assert.Equal(t, http.StatusSeeOther, second.StatusCode)
	assert.Equal(t, "/admin/newsletters", second.Header.Get("Location"))
	assert.Equal(t, first.Header.Values("Set-Cookie"), second.Header.Values("Set-Cookie"))

	// And every confirmed subscriber gets exactly one email
	assert.Eventually(t, func() bool { return len(sender.recipients()) == 3 }, 15*time.Second, 50*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.ElementsMatch(t, []string{"ann@example.com", "bob@example.com", "cid@example.com"}, sender.recipients())

	issues, err := conn.GetCollection(issue.CollectionName).CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), issues)
	assert.Eventually(t, func() bool {
		n, err := conn.GetCollection(outbox.CollectionName).CountDocuments(ctx, bson.D{})
		return err == nil && n == 0
	}, 5*time.Second, 50*time.Millisecond)
}
