package restyutil

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestInstrumentClientWritesDumps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("stored"))
	}))
	defer server.Close()

	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		slog.SetDefault(previous)
	})

	dir := filepath.Join(t.TempDir(), "resty")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New()
	InstrumentClient(client, nil, output)

	res, err := client.R().
		SetAuthToken("secret").
		SetBody("payload").
		Put(server.URL + "/icampus/ada_adm.csv")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode())

	dump, err := os.ReadFile(filepath.Join(dir, "1"))
	require.NoError(t, err)
	require.Contains(t, string(dump), "PUT "+server.URL+"/icampus/ada_adm.csv")
	require.Contains(t, string(dump), "Authorization: <redacted>")
	require.NotContains(t, string(dump), "secret")
	require.Contains(t, string(dump), "X-Test: yes")
	require.Contains(t, string(dump), "stored")
}

func TestInstrumentClientWithoutOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resty.New()
	InstrumentClient(client, nil, nil)

	res, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())
}
