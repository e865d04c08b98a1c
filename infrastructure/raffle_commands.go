package infrastructure

import (
	"time"

	"raffler/models"
)

// Command subjects accepted by the raffle service
const (
	CommandSubjectPrefix = "raffle.commands."

	InitRaffleSubject          = CommandSubjectPrefix + "init"
	BuyTicketsTokenSubject     = CommandSubjectPrefix + "buy_token"
	BuyTicketUniqueSendSubject = CommandSubjectPrefix + "buy_unique_send"
	BuyTicketUniqueBurnSubject = CommandSubjectPrefix + "buy_unique_burn"
	DrawWinnerSubject          = CommandSubjectPrefix + "draw"
	ClaimPrizeSubject          = CommandSubjectPrefix + "claim"
	CollectPrizeSubject        = CommandSubjectPrefix + "collect_prize"
	CollectTicketAssetSubject  = CommandSubjectPrefix + "collect_ticket_asset"
	SetEntrantsURISubject      = CommandSubjectPrefix + "set_uri"
	DeleteRaffleSubject        = CommandSubjectPrefix + "delete"
	RecoverUniqueAssetSubject  = CommandSubjectPrefix + "recover_unique_asset"

	// CommandRejectedSubject receives one message per command that failed validation or a state check
	CommandRejectedSubject = "raffle.command_rejected"
)

// commandHeader is decoded from every command for correlation
type commandHeader struct {
	CommandID string `json:"command_id"`
}

// CommandRejection reports why a command did not apply
type CommandRejection struct {
	CommandID string `json:"command_id"`
	Subject   string `json:"subject"`
	Code      int    `json:"code"`
	Name      string `json:"name"`
	Message   string `json:"message"`
}

type InitRaffleCommand struct {
	CommandID          string             `json:"command_id"`
	Sponsor            models.Address     `json:"sponsor"`
	Authority          models.Address     `json:"authority"`
	Entrants           *models.Address    `json:"entrants,omitempty"`
	Prize              models.Address     `json:"prize"`
	MaxTickets         *uint32            `json:"max_tickets,omitempty"`
	EntryPolicy        models.EntryPolicy `json:"entry_policy"`
	PaymentAsset       *models.Address    `json:"payment_asset,omitempty"`
	TicketPrice        *uint64            `json:"ticket_price,omitempty"`
	RequiredCollection *models.Address    `json:"required_collection,omitempty"`
	StartTime          *time.Time         `json:"start_time,omitempty"`
	DurationSeconds    int64              `json:"duration_seconds"`
	GatedCollection    *models.Address    `json:"gated_collection,omitempty"`
	MaxEntrantPct      *uint16            `json:"max_entrant_pct,omitempty"`
}

func (c InitRaffleCommand) params() models.InitRaffleParams {
	params := models.InitRaffleParams{
		Sponsor:            c.Sponsor,
		Authority:          c.Authority,
		Prize:              c.Prize,
		MaxTickets:         c.MaxTickets,
		EntryPolicy:        c.EntryPolicy,
		PaymentAsset:       c.PaymentAsset,
		TicketPrice:        c.TicketPrice,
		RequiredCollection: c.RequiredCollection,
		StartTime:          c.StartTime,
		Duration:           time.Duration(c.DurationSeconds) * time.Second,
		GatedCollection:    c.GatedCollection,
		MaxEntrantPct:      c.MaxEntrantPct,
	}
	if c.Entrants != nil {
		params.Entrants = *c.Entrants
	}
	return params
}

type BuyTicketsTokenCommand struct {
	CommandID    string          `json:"command_id"`
	Raffle       models.Address  `json:"raffle"`
	Entrant      models.Address  `json:"entrant"`
	PaymentAsset models.Address  `json:"payment_asset"`
	Amount       uint32          `json:"amount"`
	GateAsset    *models.Address `json:"gate_asset,omitempty"`
}

func (c BuyTicketsTokenCommand) params() models.BuyTicketsTokenParams {
	return models.BuyTicketsTokenParams{
		Raffle:       c.Raffle,
		Entrant:      c.Entrant,
		PaymentAsset: c.PaymentAsset,
		Amount:       c.Amount,
		Gate:         gateProof(c.GateAsset),
	}
}

type BuyTicketUniqueCommand struct {
	CommandID string                 `json:"command_id"`
	Raffle    models.Address         `json:"raffle"`
	Entrant   models.Address         `json:"entrant"`
	Asset     models.Address         `json:"asset"`
	GateAsset *models.Address        `json:"gate_asset,omitempty"`
	Royalty   *models.RoyaltyContext `json:"royalty,omitempty"`
}

func (c BuyTicketUniqueCommand) params() models.BuyTicketUniqueParams {
	return models.BuyTicketUniqueParams{
		Raffle:  c.Raffle,
		Entrant: c.Entrant,
		Asset:   c.Asset,
		Gate:    gateProof(c.GateAsset),
		Royalty: c.Royalty,
	}
}

type DrawWinnerCommand struct {
	CommandID   string         `json:"command_id"`
	Raffle      models.Address `json:"raffle"`
	Payer       models.Address `json:"payer"`
	URI         string         `json:"uri"`
	PriorityFee *uint64        `json:"priority_fee,omitempty"`
}

type ClaimPrizeCommand struct {
	CommandID   string         `json:"command_id"`
	Raffle      models.Address `json:"raffle"`
	Winner      models.Address `json:"winner"`
	Payer       models.Address `json:"payer"`
	TicketIndex uint32         `json:"ticket_index"`
}

type CollectPrizeCommand struct {
	CommandID string         `json:"command_id"`
	Raffle    models.Address `json:"raffle"`
	Caller    models.Address `json:"caller"`
}

type CollectTicketAssetCommand struct {
	CommandID string         `json:"command_id"`
	Raffle    models.Address `json:"raffle"`
	Asset     models.Address `json:"asset"`
	Caller    models.Address `json:"caller"`
}

type SetEntrantsURICommand struct {
	CommandID string         `json:"command_id"`
	Raffle    models.Address `json:"raffle"`
	Caller    models.Address `json:"caller"`
	URI       string         `json:"uri"`
}

type DeleteRaffleCommand struct {
	CommandID string         `json:"command_id"`
	Raffle    models.Address `json:"raffle"`
	Caller    models.Address `json:"caller"`
}

type RecoverUniqueAssetCommand struct {
	CommandID   string         `json:"command_id"`
	Entrants    models.Address `json:"entrants"`
	Asset       models.Address `json:"asset"`
	Destination models.Address `json:"destination"`
	Caller      models.Address `json:"caller"`
}

func gateProof(asset *models.Address) *models.GateProof {
	if asset == nil {
		return nil
	}
	return &models.GateProof{Asset: *asset}
}
