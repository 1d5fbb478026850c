package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/vidscribe/api/internal/client"
	"github.com/vidscribe/api/internal/config"
	"github.com/vidscribe/api/internal/handler"
	"github.com/vidscribe/api/internal/media"
	"github.com/vidscribe/api/internal/middleware"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/internal/service"
	"github.com/vidscribe/api/internal/store"
	"github.com/vidscribe/api/internal/worker"
)

// toolRunner stands in for yt-dlp: it writes the audio file named by -o,
// or fails when the URL contains "broken".
type toolRunner struct {
	audio string
}

func (r *toolRunner) Run(ctx context.Context, name string, args ...string) (media.CommandResult, error) {
	url := args[len(args)-1]
	if strings.Contains(url, "broken") {
		res := media.CommandResult{ExitCode: 1, Stderr: "ERROR: Unsupported URL: " + url}
		return res, &media.CommandError{Command: name, Result: res, Err: fmt.Errorf("exit status 1")}
	}
	for i, a := range args {
		if a == "-o" {
			out := strings.Replace(args[i+1], "%(ext)s", "mp3", 1)
			return media.CommandResult{}, os.WriteFile(out, []byte(r.audio), 0o644)
		}
	}
	return media.CommandResult{}, fmt.Errorf("no output template")
}

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	dataDir string
	store   *store.FileStore
	groq    *httptest.Server
}

// newGroqStub transcribes by echoing the uploaded bytes and answers chat
// questions with a fixed reply.
func newGroqStub(t *testing.T, chatAnswer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/transcriptions":
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer f.Close()
			data, _ := io.ReadAll(f)
			_ = json.NewEncoder(w).Encode(map[string]string{"text": string(data)})
		case "/chat/completions":
			if chatAnswer == "" {
				http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": chatAnswer}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupApp creates a Fiber app wired like main.go, with the in-process
// worker pool and stubbed external tools.
func setupApp(t *testing.T, chatAnswer string) *testApp {
	t.Helper()

	dataDir := t.TempDir()
	jobStore, err := store.NewFileStore(filepath.Join(dataDir, "jobs.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	groq := newGroqStub(t, chatAnswer)
	groqClient := client.NewGroqClient(&config.GroqConfig{
		APIKey:             "test-key",
		BaseURL:            groq.URL,
		Model:              "llama-3.3-70b-versatile",
		TranscriptionModel: "whisper-large-v3",
		Timeout:            5,
	})

	runner := &toolRunner{audio: "hello from the video"}
	acquirer := media.NewAcquirer(dataDir, media.NewDownloader("yt-dlp", runner), nil, nil, nil)
	splitter := media.NewSplitter("ffmpeg", runner, 0, 0)

	orchestrator := service.NewOrchestrator(jobStore, acquirer, splitter, service.NewTranscriptionDriver(groqClient), nil, dataDir)
	pool := worker.NewPool(orchestrator, 2, 10)
	pool.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	jobService := service.NewJobService(jobStore, pool, dataDir)
	chatService := service.NewChatService(jobStore, groqClient, &config.ChatConfig{
		MaxTranscriptChars: 15000,
		Temperature:        0.5,
		MaxTokens:          1024,
	})

	validate := validator.New()
	jobHandler := handler.NewJobHandler(jobService, validate, 1024)
	chatHandler := handler.NewChatHandler(chatService, validate)
	rateLimiter := middleware.NewRateLimiter(nil)

	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"store":  true,
				"groq":   groqClient.IsConfigured(),
				"redis":  false,
				"r2":     false,
				"worker": "local",
			},
		})
	})

	api := app.Group("/api")
	api.Post("/process", rateLimiter.ProcessLimit(10000), jobHandler.Process)
	api.Post("/upload", rateLimiter.UploadLimit(10000), jobHandler.Upload)
	api.Get("/status/:jobId", jobHandler.Status)
	api.Get("/result/:jobId", jobHandler.Result)
	api.Get("/jobs", jobHandler.List)
	api.Delete("/job/:jobId", jobHandler.Delete)
	api.Post("/chat", rateLimiter.ChatLimit(10000), chatHandler.Ask)

	return &testApp{app: app, dataDir: dataDir, store: jobStore, groq: groq}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("no error envelope in %v", body)
	}
	code, _ := e["code"].(string)
	return code
}

// submit posts a URL and returns the new job id.
func submit(t *testing.T, app *fiber.App, url string) string {
	t.Helper()
	resp, err := doRequest(app, "POST", "/api/process", fmt.Sprintf(`{"url":%q}`, url))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	id, _ := parseJSON(t, resp)["job_id"].(string)
	if id == "" {
		t.Fatal("expected job_id in response")
	}
	return id
}

// waitForStatus polls until the job reaches a terminal status.
func waitForStatus(t *testing.T, app *fiber.App, jobID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doRequest(app, "GET", "/api/status/"+jobID, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := parseJSON(t, resp)
		status := model.JobStatus(fmt.Sprint(body["status"]))
		if status.IsTerminal() {
			return body
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", jobID)
	return nil
}
