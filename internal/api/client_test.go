package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n")

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, New(srv.URL)
}

type recordingObserver struct {
	mu     sync.Mutex
	calls  []string
	status []int
}

func (o *recordingObserver) ObserveRequest(endpoint string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, endpoint)
	o.status = append(o.status, status)
}

func TestNew_DefaultURL(t *testing.T) {
	assert.Equal(t, "https://api.fiftyone.dev", New("").BaseURL())
}

func TestNew_CustomURL(t *testing.T) {
	assert.Equal(t, "https://custom.api.com", New("https://custom.api.com/").BaseURL())
}

func TestTestConnection_Success(t *testing.T) {
	var paths []string
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"text":"quote"}`))
	})

	for i := 0; i < 3; i++ {
		assert.True(t, c.TestConnection(context.Background()))
	}
	assert.Equal(t, []string{"/", "/", "/"}, paths)
}

func TestTestConnection_Failure(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		assert.False(t, c.TestConnection(context.Background()))
	}
}

func TestTestConnection_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url)
	assert.False(t, c.TestConnection(context.Background()))
}

func TestStocks(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stocks", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`[{"symbol":"AAPL","quantity":10,"price":150.0}]`))
	})

	stocks, err := c.Stocks(context.Background())
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "AAPL", stocks[0].Symbol)
	assert.Equal(t, 10.0, *stocks[0].Quantity)
	assert.Equal(t, 150.0, *stocks[0].Price)
	assert.Nil(t, stocks[0].Value)
}

func TestWebcams(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webcams", r.URL.Path)
		_, _ = w.Write([]byte(`{"basel":"https://example.com/basel.jpg","bern":null}`))
	})

	webcams, err := c.Webcams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/basel.jpg", webcams.URL("basel"))
	assert.Contains(t, webcams, "bern")
	assert.Nil(t, webcams["bern"])
}

func TestAviation(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/aviation/lszi", r.URL.Path)
		_, _ = w.Write([]byte(`{"weather":{"oat":15.5,"valid":true},"runway":{"status":1}}`))
	})

	aviation, err := c.Aviation(context.Background())
	require.NoError(t, err)
	require.NotNil(t, aviation.Weather)
	assert.Equal(t, 15.5, *aviation.Weather.OAT)
	assert.True(t, *aviation.Weather.Valid)
	require.NotNil(t, aviation.Runway)
	assert.Equal(t, 1, aviation.Runway.Status.Value())
}

func TestAviation_LooseRunwayStatusKeepsWeather(t *testing.T) {
	for _, payload := range []string{
		`{"weather":{"oat":12.5},"runway":{"status":1.0,"text":"open"}}`,
		`{"weather":{"oat":12.5},"runway":{"status":"1","text":"open"}}`,
		`{"weather":{"oat":12.5},"runway":{"status":1.5}}`,
	} {
		t.Run(payload, func(t *testing.T) {
			_, c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(payload))
			})

			aviation, err := c.Aviation(context.Background())
			require.NoError(t, err)
			require.NotNil(t, aviation.Weather)
			assert.Equal(t, 12.5, *aviation.Weather.OAT)
			require.NotNil(t, aviation.Runway)
			_, ok := aviation.Runway.DisplayStatus()
			assert.True(t, ok)
		})
	}
}

func TestPictures(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pictures", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Beach"},{"id":"p2"}]`))
	})

	pictures, err := c.Pictures(context.Background())
	require.NoError(t, err)
	require.Len(t, pictures, 2)
	assert.Equal(t, "Beach", pictures[0].Name)
}

func TestLatestImage(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image/latest", r.URL.Path)
		assert.Equal(t, "family", r.URL.Query().Get("code"))
		assert.Equal(t, "800", r.URL.Query().Get("max_height"))
		_, _ = w.Write(pngBytes)
	})

	data, err := c.LatestImage(context.Background(), "family", 800)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestRandomImage_DefaultHeightAndNoCode(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image/random", r.URL.Path)
		assert.False(t, r.URL.Query().Has("code"))
		assert.Equal(t, "900", r.URL.Query().Get("max_height"))
		_, _ = w.Write(pngBytes)
	})

	data, err := c.RandomImage(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestWebcamImage_AbsoluteURL(t *testing.T) {
	cam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webcam.jpg", r.URL.Path)
		_, _ = w.Write(pngBytes)
	}))
	defer cam.Close()

	obs := &recordingObserver{}
	c := New("https://api.invalid", WithObserver(obs))
	data, err := c.WebcamImage(context.Background(), cam.URL+"/webcam.jpg")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, []string{"external"}, obs.calls)
	assert.Equal(t, []int{http.StatusOK}, obs.status)
}

func TestPictureImage(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pictures/p 1", r.URL.Path)
		_, _ = w.Write(pngBytes)
	})

	data, err := c.PictureImage(context.Background(), "p 1")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestRequestErrorHandling_StatusInMessage(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Stocks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestRequestErrorHandling_BytesStatus(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.LatestImage(context.Background(), "family", 0)
	require.Error(t, err)
	assert.True(t, IsError(err))
	assert.Contains(t, err.Error(), "404")
}

func TestConnectionErrorHandling_CauseInMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url)
	_, err := c.Stocks(context.Background())
	require.Error(t, err)
	assert.True(t, IsError(err))
	assert.Contains(t, err.Error(), "error communicating with API")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDecodeErrorIsAPIError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})

	_, err := c.Webcams(context.Background())
	require.Error(t, err)
	assert.True(t, IsError(err))
}

func TestImageTimeout(t *testing.T) {
	release := make(chan struct{})
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c = New(c.BaseURL(), WithImageTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.LatestImage(context.Background(), "family", 0)
	require.Error(t, err)
	assert.True(t, IsError(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCallerCancellationIsNotAPIError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Stocks(ctx)
	require.Error(t, err)
	assert.False(t, IsError(err))
	assert.ErrorIs(t, err, context.Canceled)
}
