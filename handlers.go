package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"bitbucket.org/ginoconcreto/estoque_backend/extraction"
	"bitbucket.org/ginoconcreto/estoque_backend/livesync"
	"bitbucket.org/ginoconcreto/estoque_backend/models"
	"bitbucket.org/ginoconcreto/estoque_backend/models/reports"
	"bitbucket.org/ginoconcreto/estoque_backend/utils"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("estoque-backend")

const maxReportBytes = 10 << 20

// Fixed operator accounts. The dashboard has exactly two: the scale
// operator (admin) and a read-only visitor.
var operatorAccounts = map[string]struct {
	password string
	role     models.UserRole
}{
	"balanceiro": {password: "12345", role: models.RoleAdmin},
	"visitante":  {password: "visitante", role: models.RoleViewer},
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type mutationRequest struct {
	Usina    string `json:"usina" binding:"required"`
	Material string `json:"material" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		username := strings.ToLower(strings.TrimSpace(req.Username))
		account, ok := operatorAccounts[username]
		if !ok || account.password != req.Password {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuário ou senha incorretos"})
			return
		}

		token, err := utils.JwtGenerate(username, string(account.role))
		if err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "loginHandler", "JwtGenerate", username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "erro ao gerar o token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":    token,
			"username": username,
			"role":     account.role,
		})
	}
}

// stateHandler returns the full bootstrap view for one session: the merged
// inventory and history plus per-usina estimates and the session fields.
func stateHandler(syncer *livesync.Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := syncer.StateView()
		state.UserRole = models.UserRole(c.GetString("role"))
		state.IsLoggedIn = state.UserRole != models.RoleNone
		if usina := models.Usina(c.Query("usina")); models.ValidUsina(string(usina)) {
			state.CurrentUsina = usina
		}

		estimates := make(map[models.Usina]models.Estimates, len(state.Inventory))
		for usina, snapshot := range state.Inventory {
			estimates[usina] = models.CalculateEstimates(snapshot)
		}

		c.JSON(http.StatusOK, gin.H{
			"state":     state,
			"estimates": estimates,
		})
	}
}

func stockHandler(syncer *livesync.Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		usina, ok := usinaParam(c)
		if !ok {
			return
		}
		state := syncer.StateView()
		c.JSON(http.StatusOK, gin.H{
			"usina":     usina,
			"inventory": state.SnapshotFor(usina),
		})
	}
}

func historyHandler(syncer *livesync.Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		usina, ok := usinaParam(c)
		if !ok {
			return
		}
		state := syncer.StateView()
		entries := state.History[usina]
		if entries == nil {
			entries = []*models.HistoryEntry{}
		}
		c.JSON(http.StatusOK, gin.H{
			"usina":   usina,
			"history": models.TrimHistories(entries),
		})
	}
}

func estimatesHandler(syncer *livesync.Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		usina, ok := usinaParam(c)
		if !ok {
			return
		}
		state := syncer.StateView()
		estimates := models.CalculateEstimates(state.SnapshotFor(usina))
		c.JSON(http.StatusOK, gin.H{
			"usina":     usina,
			"max_loads": estimates.MaxLoads,
			"total_m3":  estimates.TotalM3,
		})
	}
}

// inFlight rejects a second mutation from the same session while the first
// is still running, mirroring the disabled submit button on the dashboard.
// Keyed by bearer token: two devices logged into the same account are
// distinct sessions and may mutate concurrently.
var inFlight sync.Map

func guardSession(c *gin.Context) (release func(), ok bool) {
	key, found := utils.GetTokenFromContext(c.Request.Context())
	if !found || key == "" {
		key = c.ClientIP()
	}
	if _, loaded := inFlight.LoadOrStore(key, struct{}{}); loaded {
		c.JSON(http.StatusConflict, gin.H{"error": "Aguarde: a atualização anterior ainda está em andamento."})
		return nil, false
	}
	return func() { inFlight.Delete(key) }, true
}

func entryHandler(hub *livesync.Hub, syncer *livesync.Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req mutationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		release, ok := guardSession(c)
		if !ok {
			return
		}
		defer release()

		snapshot, err := models.ApplyManualEntry(c.Request.Context(), models.Usina(req.Usina), models.Material(req.Material), req.Quantity)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}
		respondWithSnapshot(c, hub, syncer, models.Usina(req.Usina), snapshot)
	}
}

func overwriteHandler(hub *livesync.Hub, syncer *livesync.Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req mutationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		release, ok := guardSession(c)
		if !ok {
			return
		}
		defer release()

		snapshot, err := models.ApplyManualOverwrite(c.Request.Context(), models.Usina(req.Usina), models.Material(req.Material), req.Quantity)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}
		respondWithSnapshot(c, hub, syncer, models.Usina(req.Usina), snapshot)
	}
}

func reportHandler(extractor extraction.ReportExtractor, hub *livesync.Hub, syncer *livesync.Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Authorization comes first: a viewer's document must never reach
		// the archive or the extraction service.
		if models.UserRole(c.GetString("role")) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": models.ErrNotAdmin.Error()})
			return
		}

		usina := models.Usina(c.PostForm("usina"))
		if !models.ValidUsina(string(usina)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "usina inválida"})
			return
		}

		fileHeader, err := c.FormFile("report")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Envie o arquivo do relatório."})
			return
		}
		if fileHeader.Size > maxReportBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Arquivo muito grande."})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Não foi possível ler o arquivo."})
			return
		}
		defer file.Close()
		document, err := io.ReadAll(io.LimitReader(file, maxReportBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Não foi possível ler o arquivo."})
			return
		}
		mimeType := fileHeader.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/pdf"
		}

		release, ok := guardSession(c)
		if !ok {
			return
		}
		defer release()

		if extractor == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": extraction.ErrExtractionFailed.Error()})
			return
		}

		// Archive is best-effort: a storage hiccup never blocks the
		// reconciliation itself.
		objectName := fmt.Sprintf("reports/%s/%s-%s", usina, time.Now().Format("20060102-150405"), fileHeader.Filename)
		if err := utils.ArchiveReportToGCS(c.Request.Context(), objectName, mimeType, bytes.NewReader(document)); err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "reportHandler", "ArchiveReportToGCS", objectName, err)
		}

		extractCtx, span := tracer.Start(c.Request.Context(), "report.extract")
		extracted, err := extractor.ProcessReport(extractCtx, document, mimeType)
		span.End()
		if err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "reportHandler", "ProcessReport", fileHeader.Filename, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": extraction.ErrExtractionFailed.Error()})
			return
		}

		snapshot, err := models.ApplyReportDeductions(c.Request.Context(), usina, extracted)
		if err != nil {
			abortWithEngineError(c, err)
			return
		}
		respondWithSnapshot(c, hub, syncer, usina, snapshot)
	}
}

func exportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		usina := models.Usina(c.Query("usina"))
		if usina == "" {
			usina = models.DefaultUsina
		}
		if !models.ValidUsina(string(usina)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "usina inválida"})
			return
		}
		if err := reports.WriteStockReport(c.Request.Context(), c.Writer, usina); err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "exportHandler", "WriteStockReport", string(usina), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "erro ao gerar a planilha"})
		}
	}
}

// respondWithSnapshot folds the post-write reread into the live view and
// answers with the fresh numbers. The synchronizer converges on the same
// view when the change event arrives; merging here just removes the lag
// for the writer's own session.
func respondWithSnapshot(c *gin.Context, hub *livesync.Hub, syncer *livesync.Synchronizer, usina models.Usina, snapshot models.StockSnapshot) {
	state := syncer.StateView()
	inventory := make(map[models.Usina]models.StockSnapshot, len(state.Inventory))
	for u, s := range state.Inventory {
		inventory[u] = s
	}
	inventory[usina] = snapshot
	syncer.ApplyView(models.RemoteView{Inventory: inventory})
	hub.BroadcastState(syncer.StateView())

	c.JSON(http.StatusOK, gin.H{
		"usina":     usina,
		"inventory": snapshot,
		"estimates": models.CalculateEstimates(snapshot),
	})
}

func usinaParam(c *gin.Context) (models.Usina, bool) {
	usina := models.Usina(c.Param("usina"))
	if !models.ValidUsina(string(usina)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "usina inválida"})
		return "", false
	}
	return usina, true
}

func abortWithEngineError(c *gin.Context, err error) {
	switch {
	case models.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, extraction.ErrExtractionFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		config.LogError(config.GetLogger(), "handlers.go", "abortWithEngineError", "engine", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erro interno"})
	}
}
