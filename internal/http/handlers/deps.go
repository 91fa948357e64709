package handlers

import (
	"garagehub/internal/config"
	"garagehub/internal/events"
	applog "garagehub/internal/log"
	"garagehub/internal/repos"
	"garagehub/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Auth     *services.AuthService
	Sourcing *services.SourcingService

	AuthHandler     *AuthHandler
	PartHandler     *PartHandler
	RequestHandler  *RequestHandler
	QuoteHandler    *QuoteHandler
	ActivityHandler *ActivityHandler
	PageHandler     *PageHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, pub events.Publisher) *Deps {
	partRepo := repos.NewPartRepo(db)
	requestRepo := repos.NewRequestRepo(db)
	quoteRepo := repos.NewQuoteRepo(db)
	idemRepo := repos.NewIdempotencyRepo(db)
	userRepo := repos.NewUserRepo(db)

	activitySvc := services.NewActivityService(repos.NewStore(db), cfg.Organization, pub, applog.L())
	invSvc := services.NewInventoryService(partRepo, quoteRepo, activitySvc)
	sourcingSvc := services.NewSourcingService(partRepo, requestRepo, quoteRepo, activitySvc)
	authSvc := services.NewAuthService(userRepo, activitySvc)

	return &Deps{
		Auth:     authSvc,
		Sourcing: sourcingSvc,

		AuthHandler:     &AuthHandler{Auth: authSvc},
		PartHandler:     &PartHandler{Inv: invSvc, Sourcing: sourcingSvc},
		RequestHandler:  &RequestHandler{Sourcing: sourcingSvc},
		QuoteHandler:    &QuoteHandler{Sourcing: sourcingSvc, Idem: idemRepo},
		ActivityHandler: &ActivityHandler{Activity: activitySvc},
		PageHandler:     &PageHandler{Inv: invSvc, Sourcing: sourcingSvc, Activity: activitySvc},
	}
}
