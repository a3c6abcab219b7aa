package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// WebServer serves pre-computed surfaces to an external renderer
type WebServer struct {
	config   *Config
	surfaces *Surfaces
	addr     string
}

// NewWebServer creates a web server over an already assembled result
func NewWebServer(config *Config, surfaces *Surfaces, addr string) *WebServer {
	return &WebServer{
		config:   config,
		surfaces: surfaces,
		addr:     addr,
	}
}

// APIAxesResponse describes the grid axes
type APIAxesResponse struct {
	Months     []int     `json:"months"`
	Rates      []float64 `json:"rates"`
	LTVs       []float64 `json:"ltvs,omitempty"`
	LTVLabels  []string  `json:"ltv_labels,omitempty"`
	DefaultLTV float64   `json:"default_ltv,omitempty"`
	StepMonth  int       `json:"step_month"`
}

// APISurfaceResponse is one layer, optionally narrowed to a single quantity
type APISurfaceResponse struct {
	LTV       float64                `json:"ltv,omitempty"`
	Label     string                 `json:"label"`
	StepMonth int                    `json:"step_month"`
	Months    []int                  `json:"months"`
	Rates     []float64              `json:"rates"`
	Surfaces  map[string][][]float64 `json:"surfaces"` // Keyed by quantity name
}

// APIErrorResponse is returned with every non-2xx status
type APIErrorResponse struct {
	Error string `json:"error"`
}

// Handler returns the API routes
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", ws.handleGetConfig)
	mux.HandleFunc("/api/axes", ws.handleAxes)
	mux.HandleFunc("/api/surfaces", ws.handleSurfaces)
	mux.HandleFunc("/api/marker", ws.handleMarker)
	mux.HandleFunc("/api/series", ws.handleSeries)
	mux.HandleFunc("/api/report.pdf", ws.handleReportPDF)
	return mux
}

// Start starts the web server and blocks until ctx is cancelled
func (ws *WebServer) Start(ctx context.Context) error {
	// Listen on the address (use :0 for auto-assign)
	listener, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return err
	}

	actualAddr := listener.Addr().String()
	url := fmt.Sprintf("http://%s", actualAddr)
	if strings.HasPrefix(actualAddr, ":") || strings.HasPrefix(actualAddr, "[::]:") || strings.HasPrefix(actualAddr, "0.0.0.0:") {
		port := actualAddr[strings.LastIndex(actualAddr, ":")+1:]
		url = fmt.Sprintf("http://localhost:%s", port)
	}
	log.Printf("Starting web server on %s", actualAddr)
	log.Printf("Surfaces available at %s/api/surfaces", url)

	server := &http.Server{
		Handler:      ws.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Println("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// writeJSON encodes before writing the status, so an unencodable value
// such as a NaN sentinel becomes a 500 instead of a truncated 200
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(APIErrorResponse{Error: "response contains values that cannot be encoded as JSON"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIErrorResponse{Error: msg})
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// layerFromQuery resolves the ltv query parameter, defaulting to the configured layer
func (ws *WebServer) layerFromQuery(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("ltv")
	if raw == "" {
		return ws.surfaces.LayerIndex(ws.config.DefaultLTV()), nil
	}
	ltv, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ltv %q", raw)
	}
	if !ws.surfaces.Axes.IsLTVSliced() {
		return 0, fmt.Errorf("grid has no ltv axis")
	}
	idx := ws.surfaces.LayerIndex(ltv)
	if diff := ws.surfaces.Axes.LTVs[idx] - ltv; diff > 1e-6 || diff < -1e-6 {
		return 0, fmt.Errorf("ltv %v is not on the grid", ltv)
	}
	return idx, nil
}

func quantityFromQuery(r *http.Request, fallback Quantity) (Quantity, error) {
	raw := r.URL.Query().Get("quantity")
	if raw == "" {
		return fallback, nil
	}
	return ParseQuantity(raw)
}

// handleGetConfig returns the active configuration
func (ws *WebServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, ws.config)
}

// handleAxes returns the grid axes and the step month
func (ws *WebServer) handleAxes(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	axes := ws.surfaces.Axes
	resp := APIAxesResponse{
		Months:    axes.Months,
		Rates:     axes.Rates,
		LTVs:      axes.LTVs,
		StepMonth: ws.surfaces.StepMonth,
	}
	if axes.IsLTVSliced() {
		for _, layer := range ws.surfaces.Layers {
			resp.LTVLabels = append(resp.LTVLabels, layer.Label)
		}
		resp.DefaultLTV = ws.config.DefaultLTV()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSurfaces returns one layer, every quantity unless ?quantity= is given
func (ws *WebServer) handleSurfaces(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	layerIdx, err := ws.layerFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quantities := AllQuantities
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		q, err := ParseQuantity(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		quantities = []Quantity{q}
	}

	layer := ws.surfaces.Layers[layerIdx]
	resp := APISurfaceResponse{
		LTV:       layer.LTV,
		Label:     layer.Label,
		StepMonth: ws.surfaces.StepMonth,
		Months:    ws.surfaces.Axes.Months,
		Rates:     ws.surfaces.Axes.Rates,
		Surfaces:  make(map[string][][]float64, len(quantities)),
	}
	for _, q := range quantities {
		resp.Surfaces[q.String()] = layer.Surface(q)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMarker returns the step-month reference wall for a quantity (default equity)
func (ws *WebServer) handleMarker(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	q, err := quantityFromQuery(r, QuantityEquity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ws.surfaces.Marker(q))
}

// handleSeries returns the month-by-month schedule at one grid coordinate
func (ws *WebServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	layerIdx, err := ws.layerFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rateIdx, err := strconv.Atoi(r.URL.Query().Get("rate_index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "rate_index must be an integer")
		return
	}

	series, err := ws.surfaces.Series(layerIdx, rateIdx)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// handleReportPDF returns the PDF report for browser download
func (ws *WebServer) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	pdfBytes, err := GenerateSurfacePDFReport(ws.config, ws.surfaces)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate PDF: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="flexbuy-report.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	if _, err := w.Write(pdfBytes); err != nil {
		log.Printf("Error writing PDF: %v", err)
	}
}
