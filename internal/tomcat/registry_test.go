package tomcat

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ConnectAndGet(t *testing.T) {
	r := NewRegistry()

	idx, err := r.Connect("prod", ClientConfig{Host: "prod.example.com", Port: 8081, Username: "ops", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = r.Connect("stage", ClientConfig{Host: "stage.example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	conn, err := r.Get("prod")
	require.NoError(t, err)
	assert.Equal(t, 1, conn.Index)
	assert.Equal(t, "prod", conn.Alias)
	assert.NotEmpty(t, conn.ID)
	assert.Equal(t, "http://prod.example.com:8081/manager", conn.Client.BaseURL())
	assert.Equal(t, "ops", conn.Client.Config().Username)

	current, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "stage", current.Alias, "last connection becomes current")
}

func TestRegistry_ConnectInvalidConfig(t *testing.T) {
	r := NewRegistry()

	_, err := r.Connect("bad", ClientConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_UnknownAlias(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("missing")
	require.Error(t, err)
	assert.True(t, IsConnectionNotFound(err))

	_, err = r.Get("")
	assert.ErrorIs(t, err, ErrNoConnection)

	assert.True(t, IsConnectionNotFound(r.Close("missing")))
}

func TestRegistry_ReconnectReplacesAlias(t *testing.T) {
	r := NewRegistry()

	_, err := r.Connect("prod", ClientConfig{Host: "old.example.com"})
	require.NoError(t, err)
	idx, err := r.Connect("prod", ClientConfig{Host: "new.example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	conn, err := r.Get("prod")
	require.NoError(t, err)
	assert.Equal(t, "new.example.com", conn.Client.Config().Host)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Switch(t *testing.T) {
	r := NewRegistry()

	previous, err := r.Switch("prod")
	assert.True(t, IsConnectionNotFound(err))
	assert.Zero(t, previous)

	_, err = r.Connect("prod", ClientConfig{Host: "prod"})
	require.NoError(t, err)
	_, err = r.Connect("stage", ClientConfig{Host: "stage"})
	require.NoError(t, err)

	previous, err = r.Switch("prod")
	require.NoError(t, err)
	assert.Equal(t, 2, previous)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, "prod", current.Alias)

	previous, err = r.Switch("2")
	require.NoError(t, err)
	assert.Equal(t, 1, previous)

	_, err = r.Switch("7")
	assert.True(t, IsConnectionNotFound(err))
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry()

	_, err := r.Connect("prod", ClientConfig{Host: "prod"})
	require.NoError(t, err)
	_, err = r.Connect("stage", ClientConfig{Host: "stage"})
	require.NoError(t, err)

	require.NoError(t, r.Close("prod"))
	_, err = r.Get("prod")
	assert.True(t, IsConnectionNotFound(err))
	assert.Equal(t, 1, r.Len())

	// Closing the current connection leaves none selected.
	require.NoError(t, r.CloseCurrent())
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.ErrorIs(t, r.Close(""), ErrNoConnection)
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()

	for _, alias := range []string{"a", "b", "c"} {
		_, err := r.Connect(alias, ClientConfig{Host: alias})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, r.CloseAll())
	assert.Equal(t, 0, r.Len())
	for _, alias := range []string{"a", "b", "c"} {
		_, err := r.Get(alias)
		assert.True(t, IsConnectionNotFound(err), "alias %s should be gone", alias)
	}

	idx, err := r.Connect("d", ClientConfig{Host: "d"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "index numbering restarts after CloseAll")

	assert.Equal(t, 1, r.CloseAll())
	assert.Equal(t, 0, r.CloseAll())
}

func TestRegistry_ConnectWithoutAlias(t *testing.T) {
	r := NewRegistry()

	_, err := r.Connect("", ClientConfig{Host: "a"})
	require.NoError(t, err)
	idx, err := r.Connect("", ClientConfig{Host: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	previous, err := r.Switch("1")
	require.NoError(t, err)
	assert.Equal(t, idx, previous)
}

func TestRegistry_GetAndCloseByIndex(t *testing.T) {
	r := NewRegistry()

	_, err := r.Connect("", ClientConfig{Host: "a"})
	require.NoError(t, err)
	_, err = r.Connect("stage", ClientConfig{Host: "b"})
	require.NoError(t, err)

	conn, err := r.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "a", conn.Client.Config().Host)
	assert.Empty(t, conn.Alias)

	conn, err = r.Get("2")
	require.NoError(t, err)
	assert.Equal(t, "stage", conn.Alias)

	_, err = r.Get("9")
	assert.True(t, IsConnectionNotFound(err))
	assert.True(t, IsConnectionNotFound(r.Close("9")))

	require.NoError(t, r.Close("1"))
	_, err = r.Get("1")
	assert.True(t, IsConnectionNotFound(err))
	assert.Equal(t, 1, r.Len())

	current, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, "stage", current.Alias, "closing another connection keeps the current one")
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()

	_, err := r.Connect("prod", ClientConfig{Host: "prod", Password: "hidden"})
	require.NoError(t, err)
	_, err = r.Connect("stage", ClientConfig{Host: "stage"})
	require.NoError(t, err)
	_, err = r.Switch("prod")
	require.NoError(t, err)

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, 1, infos[0].Index)
	assert.Equal(t, "prod", infos[0].Alias)
	assert.True(t, infos[0].Current)
	assert.Equal(t, DefaultPort, infos[0].Port)
	assert.Equal(t, DefaultUsername, infos[0].Username)
	assert.False(t, infos[1].Current)
}

func TestRegistry_ConnectionHook(t *testing.T) {
	var mu sync.Mutex
	active := 0
	r := NewRegistry(WithConnectionHook(func(delta int) {
		mu.Lock()
		active += delta
		mu.Unlock()
	}))

	_, _ = r.Connect("a", ClientConfig{Host: "a"})
	_, _ = r.Connect("b", ClientConfig{Host: "b"})
	_, _ = r.Connect("a", ClientConfig{Host: "a2"})
	assert.Equal(t, 2, active)

	require.NoError(t, r.Close("b"))
	assert.Equal(t, 1, active)

	r.CloseAll()
	assert.Equal(t, 0, active)
}

func TestRegistry_RoutesToOwnServer(t *testing.T) {
	prod := newFakeManager(t)
	prod.reply("/manager/text/list", "OK - Listed applications\n/prod:running:0:prod\n")
	stage := newFakeManager(t)
	stage.reply("/manager/text/list", "OK - Listed applications\n/stage:running:0:stage\n")

	r := NewRegistry()
	_, err := r.Connect("prod", prod.config())
	require.NoError(t, err)
	_, err = r.Connect("stage", stage.config())
	require.NoError(t, err)

	conn, err := r.Get("prod")
	require.NoError(t, err)
	apps, err := conn.Client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "/prod", apps[0].Path)
	assert.Equal(t, 0, stage.requestCount())
}

func TestRegistry_CheckAll(t *testing.T) {
	healthy := newFakeManager(t)
	healthy.reply("/manager/text/serverinfo", serverInfoReply)
	broken := newFakeManager(t)
	broken.handle("/manager/text/serverinfo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	r := NewRegistry(WithCheckLimit(1))
	_, err := r.Connect("healthy", healthy.config())
	require.NoError(t, err)
	_, err = r.Connect("broken", broken.config())
	require.NoError(t, err)
	_, err = r.Connect("", healthy.config())
	require.NoError(t, err)

	results := r.CheckAll(context.Background())
	require.Len(t, results, 3)
	assert.NoError(t, results["healthy"])
	assert.NoError(t, results["#3"])
	require.Error(t, results["broken"])
	assert.Equal(t, http.StatusForbidden, StatusCode(results["broken"]))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Connect("shared", ClientConfig{Host: "shared"})
			_, _ = r.Get("shared")
			_ = r.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.Len())
}
