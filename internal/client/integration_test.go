//go:build integration

package client_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/devapi"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/session"
	"github.com/bobmcallan/events-portal/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const containerAPIKey = "integration-key"

func projectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found")
		}
		dir = parent
	}
}

// startAPI builds cmd/events-devapi into an image and runs it. Set
// EVENTS_TEST_API_URL to run against an API that is already up.
func startAPI(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("EVENTS_TEST_API_URL"); url != "" {
		return url
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:    projectRoot(t),
				Dockerfile: "docker/Dockerfile.devapi",
				Repo:       "events-devapi",
				Tag:        "test",
				KeepImage:  true,
			},
			ExposedPorts: []string{"4242/tcp"},
			Env: map[string]string{
				"EVENTS_API_KEY":   containerAPIKey,
				"EVENTS_LOG_LEVEL": "info",
			},
			WaitingFor: wait.ForHTTP("/health").WithPort("4242/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start events-devapi container")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ctr.Terminate(ctx)
	})

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "4242/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestIntegration_UserJourney(t *testing.T) {
	baseURL := startAPI(t)
	ctx := context.Background()

	store := session.New(memory.NewKVStorage(), common.NewSilentLogger())
	c := client.New(client.NewGateway(baseURL, containerAPIKey, store, common.NewSilentLogger()))

	_, err := c.Events.List(ctx)
	assert.ErrorIs(t, err, client.ErrSessionExpired, "anonymous calls need a login")

	resp, err := c.Auth.Login(ctx, models.LoginCredentials{Email: devapi.UserEmail, Password: devapi.UserPassword})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, devapi.UserEmail, resp.User.Email)
	assert.True(t, store.IsAuthenticated())

	events, err := c.Events.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	var target models.Event
	for _, e := range events {
		if e.Title == "Go Workshop" {
			target = e
		}
	}
	require.NotEmpty(t, target.ID, "seeded event missing")

	require.NoError(t, c.Events.Register(ctx, target.ID))
	got, err := c.Events.Get(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRegistered)
	assert.Equal(t, target.RegisteredCount+1, got.RegisteredCount)

	require.NoError(t, c.Events.CancelRegistration(ctx, target.ID))

	profile, err := c.Profile.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, devapi.UserEmail, profile.Email)

	c.Auth.Logout(ctx)
	assert.False(t, store.IsAuthenticated())
}

func TestIntegration_WrongAPIKey(t *testing.T) {
	baseURL := startAPI(t)
	if os.Getenv("EVENTS_TEST_API_URL") != "" {
		t.Skip("API key of an external API is unknown")
	}

	store := session.New(memory.NewKVStorage(), common.NewSilentLogger())
	c := client.New(client.NewGateway(baseURL, "wrong", store, common.NewSilentLogger()))

	_, err := c.Auth.Login(context.Background(), models.LoginCredentials{Email: devapi.UserEmail, Password: devapi.UserPassword})
	require.Error(t, err)
	assert.False(t, store.IsAuthenticated())
}
