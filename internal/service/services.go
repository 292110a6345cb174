package service

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dom/crusade-tracker/internal/config"
	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/repository"
	"github.com/dom/crusade-tracker/internal/rules"
	"github.com/dom/crusade-tracker/internal/snapshot"
)

// EventSink receives campaign events as they are appended; the
// websocket hub implements it to stream them to connected clients.
type EventSink interface {
	Publish(campaignID uuid.UUID, event domain.Event)
}

type nopSink struct{}

func (nopSink) Publish(uuid.UUID, domain.Event) {}

type Services struct {
	Auth     *AuthService
	Campaign *CampaignService
	Battle   *BattleService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, r rules.Rules, coordinator *snapshot.Coordinator, sink EventSink, log *logrus.Logger) *Services {
	if sink == nil {
		sink = nopSink{}
	}
	campaign := NewCampaignService(r, coordinator, sink, log)
	return &Services{
		Auth:     NewAuthService(repos.User, repos.Session, cfg),
		Campaign: campaign,
		Battle:   NewBattleService(campaign, nil),
	}
}
