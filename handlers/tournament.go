package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"tournament-engine/middleware"
	"tournament-engine/services"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService, jwtSecret []byte, logger *slog.Logger) {
	// 🔓 Public
	app.Get("/health", tournamentService.HealthCheck)

	// 🔐 Authenticated
	secured := app.Group("/tournaments", middleware.JWTAuth(jwtSecret, logger))
	manage := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleOrganizer, middleware.RoleScheduler)
	staff := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleOrganizer)

	secured.Get("/", tournamentService.GetAllTournaments)
	secured.Get("/:id", tournamentService.GetTournamentByID)
	secured.Post("/", manage, tournamentService.CreateTournament)

	// Deadline-driven transitions
	secured.Patch("/:id/status", manage, tournamentService.UpdateTournamentStatus)

	// Explicit lifecycle actions
	secured.Post("/:id/open", manage, tournamentService.OpenTournament)
	secured.Post("/:id/close", staff, tournamentService.CloseTournament)
	secured.Post("/:id/start", staff, tournamentService.StartTournament)
	secured.Post("/:id/end", staff, tournamentService.EndTournament)
	secured.Post("/:id/cancel", staff, tournamentService.CancelTournament)
	secured.Put("/:id/prize-pool", staff, tournamentService.UpdatePrizePool)

	// Participants
	secured.Post("/:id/participants", tournamentService.JoinTournament)
	secured.Delete("/:id/participants/:userId", staff, tournamentService.RemoveParticipant)
	secured.Post("/:id/participants/:userId/confirm", tournamentService.ConfirmParticipant)
	secured.Post("/:id/participants/:userId/withdraw", tournamentService.WithdrawParticipant)
	secured.Post("/:id/participants/:userId/disqualify", staff, tournamentService.DisqualifyParticipant)
	secured.Post("/:id/participants/:userId/fee", staff, tournamentService.MarkParticipantFeePaid)

	// Match stubs
	secured.Post("/:id/matches", staff, tournamentService.CreateMatch)
	secured.Post("/:id/matches/:matchId/result", staff, tournamentService.SubmitMatchResult)
}
