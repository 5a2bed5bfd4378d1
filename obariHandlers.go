package main

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/reports"
	"github.com/coraeos/obari_backend/utils"
	"github.com/coraeos/obari_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Workflow collaborators are built lazily: handlers only run after the
// readiness gate confirms the DB connection, so GetDB() is non-nil here.
var (
	gatewayOnce sync.Once
	gateway     workflow.Gateway
	blobStore   workflow.BlobStore
	notifier    workflow.Notifier
	orderCodes  = models.DefaultCodeGenerator()
)

func getGateway() workflow.Gateway {
	gatewayOnce.Do(func() {
		gateway = workflow.NewGormGateway(config.GetDB())
		blobStore = workflow.NewSnapshotBlobStore()
		notifier = workflow.DefaultNotifier()
	})
	return gateway
}

// respondWorkflowError maps domain errors to HTTP statuses. Validation
// failures are client errors; a rejected stage transition is a conflict with
// the current deal state; corrupt stored payloads are unprocessable.
func respondWorkflowError(c *gin.Context, err error) {
	var rejected *workflow.TransitionRejectedError
	switch {
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.As(err, &rejected):
		c.JSON(http.StatusConflict, gin.H{
			"ok":     false,
			"code":   rejected.Decision.Code,
			"error":  rejected.Decision.Reason,
			"reason": rejected.Decision.Reason,
		})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case utils.IsCorruptDataError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": err.Error()})
	default:
		config.LogError(config.GetLogger(), "obariHandlers.go", "respondWorkflowError", "unhandled error", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.Username == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		token, user, err := models.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":  token,
			"org_id": user.OrgId,
			"name":   user.Name,
			"role":   user.Role,
		})
	}
}

// finalizeHandler writes the write-once equals snapshot for a deal. The same
// handler serves both tracks; expected pins the stage literal the request
// must carry.
func finalizeHandler(expected models.FlowMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.FinalizeDealInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request: " + err.Error()})
			return
		}
		result, err := workflow.FinalizeEqualsSnapshot(c.Request.Context(), getGateway(), blobStore, notifier, expected, &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// stageLawCheckHandler is a dry-run: it evaluates the transition law without
// touching any deal, so rejections come back 200 with ok=false.
func stageLawCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.TransitionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, workflow.CanTransition(input))
	}
}

func createDealHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDeal
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request: " + err.Error()})
			return
		}
		deal, err := models.CreateDeal(c.Request.Context(), &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deal": deal})
	}
}

func getDealHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		deal, err := models.FindDealByDealId(c.Request.Context(), orgId, c.Param("dealId"))
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, deal)
	}
}

type advanceDealRequest struct {
	DealId string       `json:"dealId"`
	To     models.Stage `json:"to"`
}

func advanceDealHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req advanceDealRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
			return
		}
		if req.DealId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "dealId is required"})
			return
		}
		getGateway()
		var deal *models.Deal
		var err error
		if req.To == "" {
			deal, err = workflow.AdvanceDealToNext(c.Request.Context(), notifier, req.DealId)
		} else {
			deal, err = workflow.AdvanceDealStage(c.Request.Context(), notifier, req.DealId, req.To)
		}
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deal": deal})
	}
}

type pricelockRequest struct {
	DealId string     `json:"dealId"`
	Until  *time.Time `json:"until"`
}

func pricelockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pricelockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
			return
		}
		if req.DealId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "dealId is required"})
			return
		}
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		var deal *models.Deal
		var err error
		if req.Until == nil {
			deal, err = models.ClearPricelock(c.Request.Context(), orgId, req.DealId)
		} else {
			deal, err = models.SetPricelock(c.Request.Context(), orgId, req.DealId, *req.Until)
		}
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deal": deal})
	}
}

type lockDealRequest struct {
	DealId string `json:"dealId"`
	Locked *bool  `json:"locked"`
}

func lockDealHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lockDealRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
			return
		}
		if req.DealId == "" || req.Locked == nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "dealId and locked are required"})
			return
		}
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		deal, err := models.LockDeal(c.Request.Context(), orgId, req.DealId, *req.Locked)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deal": deal})
	}
}

func issueOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.IssuePairedOrdersInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request: " + err.Error()})
			return
		}
		result, err := workflow.IssuePairedOrders(c.Request.Context(), getGateway(), orderCodes, notifier, &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func adjustReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.AdjustReportInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request: " + err.Error()})
			return
		}
		result, err := workflow.AdjustReport(c.Request.Context(), getGateway(), blobStore, notifier, &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func listSnapshotsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dealId := c.Query("dealId")
		if dealId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "dealId is required"})
			return
		}
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		snaps, err := getGateway().SnapshotsForDeal(c.Request.Context(), orgId, dealId)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "snapshots": snaps})
	}
}

func getSnapshotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		snap, err := getGateway().SnapshotByHash(c.Request.Context(), orgId, c.Param("hash"))
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		if snap == nil {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "snapshot not found"})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func pipelineReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := reports.GetObariPipelineReport(c.Request.Context())
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "rows": rows})
	}
}

func pipelineExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := reports.GetObariPipelineReport(c.Request.Context())
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		reports.WritePipelineExcel(c.Writer, rows)
	}
}

// Demo endpoints: in-memory OBARI active/invoice/report records for sandbox
// environments. Registered only when OBARI_DEMO_ENDPOINTS=true.

type demoActiveRequest struct {
	DealRef   string          `json:"dealRef"`
	OrderCode string          `json:"orderCode"`
	Qty       decimal.Decimal `json:"qty"`
}

func demoActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req demoActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
			return
		}
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		rec := models.Demo.AddActive(models.ActiveRecord{
			ID:          models.NewOpaqueId(),
			OrgId:       orgId,
			DealRef:     req.DealRef,
			OrderCode:   req.OrderCode,
			Qty:         req.Qty,
			ActivatedAt: time.Now().UTC(),
		})
		c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
	}
}

type demoInvoiceRequest struct {
	DealRef   string          `json:"dealRef"`
	OrderCode string          `json:"orderCode"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

func demoInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req demoInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
			return
		}
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		rec := models.Demo.AddInvoice(models.InvoiceRecord{
			ID:        models.NewOpaqueId(),
			OrgId:     orgId,
			DealRef:   req.DealRef,
			OrderCode: req.OrderCode,
			Amount:    req.Amount,
			Currency:  req.Currency,
			IssuedAt:  time.Now().UTC(),
		})
		c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
	}
}

type demoReportRequest struct {
	DealRef      string `json:"dealRef"`
	SnapshotHash string `json:"snapshotHash"`
}

func demoReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req demoReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
			return
		}
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		rec := models.Demo.AddReport(models.ReportRecord{
			ID:           models.NewOpaqueId(),
			OrgId:        orgId,
			DealRef:      req.DealRef,
			SnapshotHash: req.SnapshotHash,
			CreatedAt:    time.Now().UTC(),
		})
		c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
	}
}

func demoRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		actives, invoices, reportRecs := models.Demo.Records(orgId)
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"actives":  actives,
			"invoices": invoices,
			"reports":  reportRecs,
		})
	}
}
