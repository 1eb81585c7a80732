package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"tavern/app/internal/db"
	"tavern/app/internal/http/templates"
	"tavern/app/internal/roster"
)

// Roster operation ids, used as metric labels and Sentry tags.
const (
	opRosterPage      = "roster-page"
	opListCharacters  = "list-characters"
	opCreateCharacter = "create-character"
	opDeleteCharacter = "delete-character"
	opCreateTable     = "create-table"
	opDropTable       = "drop-table"
	opSeedRoster      = "seed-roster"
	opHealth          = "health"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	rosterPageTitle      = "Tavern Roster"
	errorFallbackMessage = "We couldn't process your request right now."
	tableMissingMessage  = "The roster table does not exist. Create it before adding characters."
	tableExistsMessage   = "The roster table already exists."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type characterBody struct {
	Owner         string  `json:"owner" doc:"Player that owns the character"`
	Level         int     `json:"level"`
	Role          string  `json:"role"`
	CharacterName string  `json:"character"`
	Race          *string `json:"race,omitempty"`
	Alignment     *string `json:"alignment,omitempty"`
}

type characterView struct {
	ID            int64   `json:"id"`
	Owner         string  `json:"owner"`
	Level         int     `json:"level"`
	Role          string  `json:"role"`
	CharacterName string  `json:"character"`
	Race          *string `json:"race"`
	Alignment     *string `json:"alignment"`
}

type createCharacterInput struct {
	Body characterBody
}

type createCharacterOutput struct {
	Body struct {
		ID int64 `json:"id"`
	}
}

type listCharactersOutput struct {
	Body struct {
		Characters []characterView `json:"characters"`
	}
}

type deleteCharacterInput struct {
	ID int64 `path:"id"`
}

type seedOutput struct {
	Body struct {
		IDs []int64 `json:"ids"`
	}
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerRosterPageRoute() {
	huma.Get(s.api, "/", s.rosterPageHandler, htmlOperation(
		opRosterPage,
		"Roster page",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerCharacterRoutes() {
	huma.Get(s.api, "/api/characters", s.listCharactersHandler, func(op *huma.Operation) {
		op.OperationID = opListCharacters
		op.Summary = "List characters ordered by owner"
	})
	huma.Post(s.api, "/api/characters", s.createCharacterHandler, func(op *huma.Operation) {
		op.OperationID = opCreateCharacter
		op.Summary = "Create a character"
		op.DefaultStatus = stdhttp.StatusCreated
	})
	huma.Delete(s.api, "/api/characters/{id}", s.deleteCharacterHandler, func(op *huma.Operation) {
		op.OperationID = opDeleteCharacter
		op.Summary = "Delete a character by id"
		op.DefaultStatus = stdhttp.StatusNoContent
	})
}

func (s *Server) registerTableRoutes() {
	huma.Post(s.api, "/api/table", s.createTableHandler, func(op *huma.Operation) {
		op.OperationID = opCreateTable
		op.Summary = "Create the roster table"
		op.DefaultStatus = stdhttp.StatusCreated
	})
	huma.Delete(s.api, "/api/table", s.dropTableHandler, func(op *huma.Operation) {
		op.OperationID = opDropTable
		op.Summary = "Drop the roster table"
		op.DefaultStatus = stdhttp.StatusNoContent
	})
}

func (s *Server) registerSeedRoute() {
	huma.Post(s.api, "/api/seed", s.seedHandler, func(op *huma.Operation) {
		op.OperationID = opSeedRoster
		op.Summary = "Insert the sample party"
		op.DefaultStatus = stdhttp.StatusCreated
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.OperationID = opHealth
		op.Summary = "Health check"
	})
}

func (s *Server) rosterPageHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	records, err := s.roster.ListAllByOwner(ctx)
	if err != nil {
		if eris.Is(err, roster.ErrTableMissing) {
			s.logWarn(ctx, err, "roster page requested without table")
			return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, tableMissingMessage)
		}
		s.recordError(ctx, err, "loading roster page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	data := templates.RosterPageData{
		Title: rosterPageTitle,
		Characters: lo.Map(records, func(record roster.Record, _ int) templates.CharacterView {
			return templates.CharacterView{
				ID:            record.ID,
				Owner:         record.Owner,
				Level:         record.Level,
				Role:          record.Role,
				CharacterName: record.CharacterName,
				Race:          lo.FromPtr(record.Race),
				Alignment:     lo.FromPtr(record.Alignment),
			}
		}),
	}

	return s.renderPage(ctx, stdhttp.StatusOK, templates.RosterPage(data))
}

func (s *Server) listCharactersHandler(ctx context.Context, _ *struct{}) (*listCharactersOutput, error) {
	records, err := s.roster.ListAllByOwner(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing characters", nil)
	}

	out := &listCharactersOutput{}
	out.Body.Characters = lo.Map(records, func(record roster.Record, _ int) characterView {
		return toCharacterView(record)
	})

	return out, nil
}

func (s *Server) createCharacterHandler(ctx context.Context, input *createCharacterInput) (*createCharacterOutput, error) {
	record := roster.Record{
		Owner:         input.Body.Owner,
		Level:         input.Body.Level,
		Role:          input.Body.Role,
		CharacterName: input.Body.CharacterName,
		Race:          input.Body.Race,
		Alignment:     input.Body.Alignment,
	}

	id, err := s.roster.Create(ctx, record)
	if err != nil {
		return nil, s.apiError(ctx, err, "creating character", logrus.Fields{"owner": record.Owner})
	}

	out := &createCharacterOutput{}
	out.Body.ID = id
	return out, nil
}

func (s *Server) deleteCharacterHandler(ctx context.Context, input *deleteCharacterInput) (*struct{}, error) {
	if err := s.roster.DeleteByID(ctx, input.ID); err != nil {
		return nil, s.apiError(ctx, err, "deleting character", logrus.Fields{"id": input.ID})
	}
	return nil, nil
}

func (s *Server) createTableHandler(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := s.roster.CreateTable(ctx); err != nil {
		return nil, s.apiError(ctx, err, "creating roster table", nil)
	}
	return nil, nil
}

func (s *Server) dropTableHandler(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := s.roster.DropTable(ctx); err != nil {
		return nil, s.apiError(ctx, err, "dropping roster table", nil)
	}
	return nil, nil
}

func (s *Server) seedHandler(ctx context.Context, _ *struct{}) (*seedOutput, error) {
	ids, err := s.roster.Seed(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "seeding roster", logrus.Fields{"inserted": len(ids)})
	}

	out := &seedOutput{}
	out.Body.IDs = ids
	return out, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	return resp, nil
}

// apiError maps roster failures onto Huma status errors. Expected schema
// conflicts are logged as warnings, everything else is reported.
func (s *Server) apiError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	switch {
	case eris.Is(err, roster.ErrTableMissing):
		s.logWarn(ctx, err, message)
		return huma.Error404NotFound(tableMissingMessage)
	case eris.Is(err, roster.ErrTableExists):
		s.logWarn(ctx, err, message)
		return huma.Error409Conflict(tableExistsMessage)
	default:
		s.recordError(ctx, err, message, fields)
		return huma.Error500InternalServerError(errorFallbackMessage)
	}
}

func toCharacterView(record roster.Record) characterView {
	return characterView{
		ID:            record.ID,
		Owner:         record.Owner,
		Level:         record.Level,
		Role:          record.Role,
		CharacterName: record.CharacterName,
		Race:          record.Race,
		Alignment:     record.Alignment,
	}
}

func htmlOperation(operationID, summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		op.OperationID = operationID
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			op.Responses[strconv.Itoa(status)] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	return s.renderPage(ctx, status, templates.ErrorPage(templates.ErrorPageData{
		Title:       fmt.Sprintf("%s • %s", label, rosterPageTitle),
		StatusLabel: label,
		Message:     message,
	}))
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if scope := requestScopeFrom(ctx); scope.RequestID != "" {
			entry = entry.WithFields(logrus.Fields{"request_id": scope.RequestID, "operation": scope.OperationID})
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func (s *Server) logWarn(ctx context.Context, err error, message string) {
	if s.logger == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if scope := requestScopeFrom(ctx); scope.RequestID != "" {
		entry = entry.WithFields(logrus.Fields{"request_id": scope.RequestID, "operation": scope.OperationID})
	}
	entry.Warn(message)
}
