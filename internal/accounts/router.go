package accounts

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/billing"
	"github.com/fluxaudio/fluxaudio/internal/common"
	"github.com/fluxaudio/fluxaudio/internal/httpapi/middleware"
)

type registerReq struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateMinutesReq struct {
	UserID        string `json:"user_id" binding:"required"`
	MinutesChange int    `json:"minutes_change"`
}

type debitReq struct {
	UserID  string `json:"user_id" binding:"required"`
	Minutes int    `json:"minutes" binding:"required"`
}

type checkoutReq struct {
	UserID   string  `json:"user_id" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
	Currency string  `json:"currency" binding:"required"`
	PlanName string  `json:"plan_name" binding:"required"`
}

type webhookReq struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Status        string `json:"status" binding:"required"`
	UserID        string `json:"user_id"`
	MinutesAdded  *int   `json:"minutes_added"`
}

// NewRouter exposes user management and payments. The internal
// endpoints (update-minutes, debit-minutes, webhook) are open like the
// rest of the demo mesh; only the admin listing needs a token.
func NewRouter(svc *Service, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "accounts service is healthy"})
	})

	r.POST("/register", func(c *gin.Context) {
		var req registerReq
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, bindMessage(err))
			return
		}
		u, err := svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			respondErr(c, err, 10002)
			return
		}
		common.OK(c, gin.H{"user_id": u.ID, "username": u.Username})
	})

	r.POST("/login", func(c *gin.Context) {
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, bindMessage(err))
			return
		}
		token, err := svc.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondErr(c, err, 10003)
			return
		}
		common.OK(c, gin.H{"access_token": token, "token_type": "bearer"})
	})

	r.GET("/profile/:user_id", func(c *gin.Context) {
		u, err := svc.Profile(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			respondErr(c, err, 20001)
			return
		}
		common.OK(c, u)
	})

	r.GET("/account-status/:user_id", func(c *gin.Context) {
		u, err := svc.Profile(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			respondErr(c, err, 20001)
			return
		}
		common.OK(c, billing.AccountStatus{
			UserID:           u.ID,
			Paid:             u.PaidStatus,
			MinutesRemaining: u.MinutesRemaining,
		})
	})

	r.POST("/update-minutes", func(c *gin.Context) {
		var req updateMinutesReq
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, bindMessage(err))
			return
		}
		newMinutes, err := svc.UpdateMinutes(c.Request.Context(), req.UserID, req.MinutesChange)
		if err != nil {
			respondErr(c, err, 20002)
			return
		}
		common.OK(c, gin.H{"new_minutes": newMinutes})
	})

	r.POST("/debit-minutes", func(c *gin.Context) {
		var req debitReq
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, bindMessage(err))
			return
		}
		newMinutes, err := svc.DebitMinutes(c.Request.Context(), req.UserID, req.Minutes)
		if err != nil {
			if errors.Is(err, billing.ErrInsufficientFunds) {
				common.Fail(c, http.StatusPaymentRequired, 40201, "insufficient minutes")
				return
			}
			respondErr(c, err, 20003)
			return
		}
		common.OK(c, gin.H{"new_minutes": newMinutes})
	})

	r.POST("/create-checkout-session", func(c *gin.Context) {
		var req checkoutReq
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, bindMessage(err))
			return
		}
		t, err := svc.CreateCheckout(c.Request.Context(), req.UserID, req.Amount, req.Currency, req.PlanName)
		if err != nil {
			respondErr(c, err, 20004)
			return
		}
		common.OK(c, gin.H{"transaction_id": t.ID, "redirect_url": t.GatewayURL})
	})

	r.POST("/webhook", func(c *gin.Context) {
		var req webhookReq
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, bindMessage(err))
			return
		}
		if err := svc.HandleWebhook(c.Request.Context(), req.TransactionID, req.Status, req.UserID, req.MinutesAdded); err != nil {
			respondErr(c, err, 20005)
			return
		}
		common.OK(c, gin.H{"transaction_id": req.TransactionID})
	})

	r.GET("/transactions/:user_id", func(c *gin.Context) {
		out, err := svc.ListTransactions(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			respondErr(c, err, 20006)
			return
		}
		common.OK(c, gin.H{"transactions": out})
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.AuthRequired(jwtSecret), middleware.AdminOnly())
	adminGroup.GET("/users", func(c *gin.Context) {
		users, err := svc.ListUsers(c.Request.Context())
		if err != nil {
			respondErr(c, err, 20007)
			return
		}
		common.OK(c, gin.H{"users": users})
	})

	return r
}

func bindMessage(err error) string {
	if msgs := common.FormatValidationErrors(err); len(msgs) > 0 {
		return msgs[0]
	}
	return "invalid json"
}

func respondErr(c *gin.Context, err error, code int) {
	common.Fail(c, apperr.HTTPStatus(err), code, err.Error())
}
