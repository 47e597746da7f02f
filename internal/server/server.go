package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"shelfline/internal/domain"
	"shelfline/internal/engine"
	"shelfline/internal/normalize"
	"shelfline/internal/source"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"as_of is not a date"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Shelfline API. The API is
// stateless: every analyze call carries its own input snapshot and nothing
// is persisted server-side.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("Shelfline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerPolicy(group, cfg.Engine)
	registerAnalyze(group, cfg.Engine)
	registerAnalyzeCSV(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, source.ErrUnavailable) {
		return newAPIError(http.StatusBadRequest, "source_unavailable", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "not a date") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// withAsOf fixes the engine clock to an explicit evaluation instant so the
// response is deterministic for the caller. An empty value keeps the server
// clock.
func withAsOf(e engine.Engine, asOf string) (engine.Engine, error) {
	if asOf == "" {
		return e, nil
	}
	t, err := time.Parse(time.RFC3339, asOf)
	if err != nil {
		if d, ok := normalize.Date(asOf, e.Config.Normalize.DateOrder); ok {
			t = d
		} else {
			return e, fmt.Errorf("as_of %q is not a date", asOf)
		}
	}
	e.Now = func() time.Time { return t }
	return e, nil
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerPolicy(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "policy",
		Method:      http.MethodGet,
		Path:        "/policy",
		Summary:     "Classification thresholds and normalization policy",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body PolicyResponse `json:"body"`
	}, error) {
		return &struct {
			Body PolicyResponse `json:"body"`
		}{Body: PolicyResponse{
			HighMaxDays:   engine.HighMaxDays,
			MediumMaxDays: engine.MediumMaxDays,
			Normalization: string(e.Config.Normalize.Policy),
			DateOrder:     string(e.Config.Normalize.DateOrder),
			BinWidth:      e.Config.Charts.BinWidth,
		}}, nil
	})
}

func registerAnalyze(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "analyze",
		Method:      http.MethodPost,
		Path:        "/analyze",
		Summary:     "Analyze inventory rows",
		Description: "Runs the derivation pipeline over the posted rows and returns the enriched records, both worklists, and the chart summary.",
	}, func(ctx context.Context, input *struct {
		Body AnalyzeRequest
	}) (*struct {
		Body engine.Result `json:"body"`
	}, error) {
		eng, err := withAsOf(e, input.Body.AsOf)
		if err != nil {
			return nil, handleError(err)
		}
		rows := make([]domain.RawRow, 0, len(input.Body.Rows))
		for _, r := range input.Body.Rows {
			rows = append(rows, domain.RawRow(r))
		}
		res, err := eng.Run(ctx, rows)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Result `json:"body"`
		}{Body: res}, nil
	})
}

func registerAnalyzeCSV(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "analyze-csv",
		Method:      http.MethodPost,
		Path:        "/analyze/csv",
		Summary:     "Analyze an uploaded CSV",
		Description: "Accepts the raw feed as the request body, using the configured delimiter and column names.",
	}, func(ctx context.Context, input *struct {
		AsOf    string `query:"as_of" doc:"Evaluation instant (RFC 3339 or feed date format); defaults to now"`
		RawBody []byte `contentType:"text/csv"`
	}) (*struct {
		Body engine.Result `json:"body"`
	}, error) {
		eng, err := withAsOf(e, input.AsOf)
		if err != nil {
			return nil, handleError(err)
		}
		rows, err := source.ParseCSV(ctx, bytes.NewReader(input.RawBody), e.Config.Delimiter(), source.ColumnsFrom(e.Config))
		if err != nil {
			return nil, handleError(err)
		}
		res, err := eng.Run(ctx, rows)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Result `json:"body"`
		}{Body: res}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Shelfline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        window.ui = SwaggerUIBundle({ url: %q, dom_id: "#swagger-ui" });
      };
    </script>
  </body>
</html>`, specURL)
}
