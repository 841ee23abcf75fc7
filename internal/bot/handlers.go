package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/dday-bot/internal/app"
)

// Command names
const (
	CommandAdd    = "add-dday"
	CommandDelete = "delete-dday"
	CommandCheck  = "check-dday"
)

const listingTitle = "📅 Registered D-days"

// Messages
const (
	msgInvalidDate  = "❌ The date format is invalid. Please use `YYYYMMDD`."
	msgDuplicate    = "❌ A D-day titled '%s' already exists. Please use another title."
	msgAdded        = "✅ D-day '%s' (%s) was added!"
	msgNotFound     = "❌ Could not find a D-day titled '%s'."
	msgDeleted      = "🗑️ D-day '%s' was deleted."
	msgEmpty        = "No D-days are registered yet."
	msgGuildOnly    = "❌ D-days can only be managed inside a server."
	msgStoreFailure = "❌ Something went wrong while accessing the D-day data. Please try again later."
)

// Handlers implements the three D-day commands on top of a Store
type Handlers struct {
	store  app.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewHandlers returns handlers using store; now defaults to time.Now
func NewHandlers(store app.Store, logger *zap.Logger, now func() time.Time) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Handlers{store: store, logger: logger, now: now}
}

// Commands returns the command table
func (h *Handlers) Commands() []Command {
	return []Command{
		{
			Name:        CommandAdd,
			Description: "Add a new D-day.",
			Options: []Option{
				{Name: "title", Description: "Title of the D-day to remember", Required: true},
				{Name: "date", Description: "Date (YYYYMMDD)", Required: true},
			},
			Handler: h.Add,
		},
		{
			Name:        CommandDelete,
			Description: "Delete a registered D-day.",
			Options: []Option{
				{Name: "title", Description: "Title of the D-day to delete", Required: true},
			},
			Handler: h.Delete,
		},
		{
			Name:        CommandCheck,
			Description: "Show all D-days.",
			Handler:     h.Check,
		},
	}
}

// Add registers a new D-day in the invoking guild
func (h *Handlers) Add(ctx context.Context, inv Invocation) Response {
	if inv.GuildID == "" {
		return private(msgGuildOnly)
	}
	title, dateText := inv.Options["title"], inv.Options["date"]

	var normalized string
	err := h.store.Update(ctx, inv.GuildID, func(ledger app.Ledger) (app.Ledger, error) {
		updated, date, err := app.AddEvent(ledger, title, dateText)
		normalized = date
		return updated, err
	})
	switch {
	case errors.Is(err, app.ErrInvalidDateFormat):
		return private(msgInvalidDate)
	case errors.Is(err, app.ErrDuplicateTitle):
		return private(fmt.Sprintf(msgDuplicate, title))
	case err != nil:
		return h.storeFailure(inv, err)
	}

	h.logger.Info("D-day added",
		zap.String("invocation", inv.ID),
		zap.String("guild", inv.GuildID),
		zap.String("title", title),
		zap.String("date", normalized))
	return public(fmt.Sprintf(msgAdded, title, normalized))
}

// Delete removes a D-day from the invoking guild
func (h *Handlers) Delete(ctx context.Context, inv Invocation) Response {
	if inv.GuildID == "" {
		return private(msgGuildOnly)
	}
	title := inv.Options["title"]

	err := h.store.Update(ctx, inv.GuildID, func(ledger app.Ledger) (app.Ledger, error) {
		return app.DeleteEvent(ledger, title)
	})
	switch {
	case errors.Is(err, app.ErrTitleNotFound):
		return private(fmt.Sprintf(msgNotFound, title))
	case err != nil:
		return h.storeFailure(inv, err)
	}

	h.logger.Info("D-day deleted",
		zap.String("invocation", inv.ID),
		zap.String("guild", inv.GuildID),
		zap.String("title", title))
	return public(fmt.Sprintf(msgDeleted, title))
}

// Check lists the invoking guild's D-days ordered by date
func (h *Handlers) Check(ctx context.Context, inv Invocation) Response {
	if inv.GuildID == "" {
		return private(msgGuildOnly)
	}

	ledger, err := h.store.LoadLedger(ctx, inv.GuildID)
	if err != nil {
		return h.storeFailure(inv, err)
	}

	countdowns, skipped, err := app.ListEvents(ledger, h.now())
	if len(skipped) > 0 {
		h.logger.Warn("Skipping D-days with unreadable dates",
			zap.String("guild", inv.GuildID),
			zap.Strings("titles", skipped))
	}
	if errors.Is(err, app.ErrEmptyLedger) || len(countdowns) == 0 {
		return private(msgEmpty)
	}

	return Response{Listing: &Listing{Title: listingTitle, Entries: countdowns}}
}

func (h *Handlers) storeFailure(inv Invocation, err error) Response {
	h.logger.Error("D-day store failure",
		zap.String("invocation", inv.ID),
		zap.String("command", inv.Command),
		zap.String("guild", inv.GuildID),
		zap.Bool("corrupt", errors.Is(err, app.ErrCorruptStore)),
		zap.Error(err))
	return private(msgStoreFailure)
}
