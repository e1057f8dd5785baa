package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/config"
	"github.com/AdamBeresnev/op-chess-club/internal/httputil"
	"github.com/AdamBeresnev/op-chess-club/internal/messages"
	"github.com/AdamBeresnev/op-chess-club/internal/middleware"
	"github.com/AdamBeresnev/op-chess-club/internal/service"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	"github.com/AdamBeresnev/op-chess-club/views"
	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/markbates/goth/gothic"
)

type app struct {
	db        *sqlx.DB
	sessions  *scs.SessionManager
	flash     *messages.SessionSink
	providers []string

	userStore *store.UserStore
	clubStore *store.ClubStore

	users         *service.UserService
	clubs         *service.ClubService
	tournaments   *service.TournamentService
	participation *service.ParticipationService
	matches       *service.MatchService
	ratings       *service.RatingService
}

func newApp(database *sqlx.DB, sessions *scs.SessionManager, clock clockwork.Clock, cfg *config.Config, providers []string) *app {
	tournamentStore := store.NewTournamentStore(database)
	clubStore := store.NewClubStore(database)
	userStore := store.NewUserStore(database)
	clubs := service.NewClubService(database, clubStore)

	return &app{
		db:            database,
		sessions:      sessions,
		flash:         messages.NewSessionSink(sessions),
		providers:     providers,
		userStore:     userStore,
		clubStore:     clubStore,
		users:         service.NewUserService(database, userStore, clock),
		clubs:         clubs,
		tournaments:   service.NewTournamentService(database, tournamentStore, userStore, clubs, clock, service.NewRules(cfg.Tournament)),
		participation: service.NewParticipationService(database, tournamentStore, clubs, clock),
		matches:       service.NewMatchService(database, tournamentStore, clock),
		ratings:       service.NewRatingService(database, tournamentStore, clubStore, cfg.Rating),
	}
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.sessions.LoadAndSave)

	// Serve static files
	fileServer := http.FileServer(http.Dir("./static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(a.sessions, a.userStore))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			a.page(w, r, "Chess club", templ.NopComponent)
		})

		r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
			tournamentID, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			userID, _ := middleware.GetUserIDFromContext(r.Context())

			data, err := a.tournaments.GetTournamentData(r.Context(), tournamentID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Tournament not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to get tournament", err)
				return
			}
			a.page(w, r, data.Tournament.Name, views.TournamentView(data, userID))
		})

		r.Post("/tournaments/{id}/join", a.participationAction(a.participation.Join, "You have joined the tournament."))
		r.Post("/tournaments/{id}/leave", a.participationAction(a.participation.Leave, "You have left the tournament."))
		r.Post("/tournaments/{id}/cancel", a.participationAction(a.participation.Cancel, "The tournament has been cancelled."))

		r.Post("/tournaments/{id}/generate", func(w http.ResponseWriter, r *http.Request) {
			tournamentID, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			userID, _ := middleware.GetUserIDFromContext(r.Context())

			level, msg, err := a.tournaments.GenerateMatches(r.Context(), tournamentID, userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Tournament not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to generate matches", err)
				return
			}
			a.flash.Add(r.Context(), level, msg)
			http.Redirect(w, r, nextURL(r, "/tournaments/"+tournamentID.String()), http.StatusSeeOther)
		})

		r.Post("/matches/{id}/result", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			if err := r.ParseForm(); err != nil {
				httputil.BadRequest(w, "Invalid form data", err)
				return
			}
			outcome, err := bracket.ParseResult(r.Form.Get("result"))
			if err != nil {
				httputil.BadRequest(w, "Invalid match result", err)
				return
			}
			userID, _ := middleware.GetUserIDFromContext(r.Context())

			match, msg, err := a.matches.RecordResult(r.Context(), matchID, userID, outcome)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Match not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to record result", err)
				return
			}
			if msg != "" {
				a.flash.Add(r.Context(), messages.Error, msg)
			} else {
				a.flash.Add(r.Context(), messages.Success, "The result has been recorded.")
			}
			http.Redirect(w, r, nextURL(r, "/tournaments/"+match.TournamentID.String()), http.StatusSeeOther)
		})

		r.Get("/clubs/{clubID}", func(w http.ResponseWriter, r *http.Request) {
			clubID, ok := parseID(w, r, "clubID")
			if !ok {
				return
			}
			c, err := a.clubs.GetClub(r.Context(), clubID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Club not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to get club", err)
				return
			}
			tournaments, err := a.tournaments.GetClubTournaments(r.Context(), clubID)
			if err != nil {
				httputil.InternalServerError(w, "Failed to get tournaments", err)
				return
			}

			userID, _ := middleware.GetUserIDFromContext(r.Context())
			membership, err := a.clubs.GetMembership(r.Context(), a.db, userID, clubID)
			if err != nil {
				httputil.InternalServerError(w, "Failed to get membership", err)
				return
			}
			a.page(w, r, c.Name, views.ClubView(c, tournaments, membership))
		})

		r.Post("/clubs/{clubID}/tournaments", func(w http.ResponseWriter, r *http.Request) {
			clubID, ok := parseID(w, r, "clubID")
			if !ok {
				return
			}
			if err := r.ParseForm(); err != nil {
				httputil.BadRequest(w, "Invalid form data", err)
				return
			}
			userID, _ := middleware.GetUserIDFromContext(r.Context())

			input := service.CreateTournamentInput{
				ClubID:      clubID,
				OrganizerID: userID,
				Name:        strings.TrimSpace(r.Form.Get("name")),
				Description: strings.TrimSpace(r.Form.Get("description")),
			}
			var err error
			if input.Date, err = parseFormTime(r.Form.Get("date")); err != nil {
				httputil.BadRequest(w, "Invalid date", err)
				return
			}
			if input.Deadline, err = parseFormTime(r.Form.Get("deadline")); err != nil {
				httputil.BadRequest(w, "Invalid deadline", err)
				return
			}
			if v := r.Form.Get("capacity"); v != "" {
				capacity, err := strconv.Atoi(v)
				if err != nil {
					httputil.BadRequest(w, "Invalid capacity", err)
					return
				}
				input.Capacity = &capacity
			}
			for _, v := range r.Form["coorganizer"] {
				id, err := uuid.Parse(v)
				if err != nil {
					httputil.BadRequest(w, "Invalid co-organizer", err)
					return
				}
				input.Coorganizers = append(input.Coorganizers, id)
			}

			id, msg, err := a.tournaments.CreateTournament(r.Context(), input)
			if err != nil {
				httputil.InternalServerError(w, "Failed to create tournament", err)
				return
			}
			if msg != "" {
				a.flash.Add(r.Context(), messages.Error, msg)
				http.Redirect(w, r, "/clubs/"+clubID.String(), http.StatusSeeOther)
				return
			}
			a.flash.Add(r.Context(), messages.Success, "The tournament has been created.")
			http.Redirect(w, r, "/tournaments/"+id.String(), http.StatusSeeOther)
		})

		r.Get("/clubs/{clubID}/members/{userID}/ratings", func(w http.ResponseWriter, r *http.Request) {
			clubID, ok := parseID(w, r, "clubID")
			if !ok {
				return
			}
			memberID, ok := parseID(w, r, "userID")
			if !ok {
				return
			}

			var asOf *time.Time
			if v := r.URL.Query().Get("as_of"); v != "" {
				at, err := time.Parse(time.RFC3339, v)
				if err != nil {
					httputil.BadRequest(w, "Invalid as_of date", err)
					return
				}
				asOf = &at
			}

			viewerID, _ := middleware.GetUserIDFromContext(r.Context())
			viewer, err := a.clubs.GetMembership(r.Context(), a.db, viewerID, clubID)
			if err != nil {
				httputil.InternalServerError(w, "Failed to get membership", err)
				return
			}
			if !club.GrantsAtLeast(viewer, club.Member) {
				httputil.Forbidden(w, "Only members of this club can see its ratings")
				return
			}

			membership, err := a.clubs.GetMembership(r.Context(), a.db, memberID, clubID)
			if err != nil {
				httputil.InternalServerError(w, "Failed to get membership", err)
				return
			}
			if membership == nil {
				httputil.NotFound(w, "Membership not found", nil)
				return
			}

			points, err := a.ratings.GetRatings(r.Context(), membership, asOf)
			if err != nil {
				httputil.InternalServerError(w, "Failed to compute ratings", err)
				return
			}

			name := memberID.String()
			if member, err := a.userStore.GetUser(r.Context(), memberID); err == nil {
				name = member.Username
			}
			a.page(w, r, name, views.RatingsView(name, points, membership.HighestEloRating, membership.LowestEloRating))
		})

		r.Post("/account/delete", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			if err := a.users.DeleteAccount(r.Context(), userID); err != nil {
				httputil.InternalServerError(w, "Failed to delete account", err)
				return
			}
			if err := a.sessions.Destroy(r.Context()); err != nil {
				httputil.InternalServerError(w, "Failed to log out", err)
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
		})
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := a.users.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		if err := middleware.Login(r.Context(), a.sessions, user.ID); err != nil {
			httputil.InternalServerError(w, "Failed to start session", err)
			return
		}

		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		a.page(w, r, "Log in", views.LoginPage(a.providers))
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := a.sessions.Destroy(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to log out", err)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	return r
}

type participationFunc func(ctx context.Context, tournamentID, userID uuid.UUID) (string, error)

// participationAction flashes the refusal, or success when the message is empty, and
// returns to the page the form was posted from.
func (a *app) participationAction(action participationFunc, success string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tournamentID, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		userID, _ := middleware.GetUserIDFromContext(r.Context())

		msg, err := action(r.Context(), tournamentID, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httputil.NotFound(w, "Tournament not found", err)
				return
			}
			httputil.InternalServerError(w, "Failed to update participation", err)
			return
		}

		next := nextURL(r, "/tournaments/"+tournamentID.String())
		if msg != "" {
			a.flash.Add(r.Context(), messages.Error, msg)
		} else {
			a.flash.Add(r.Context(), messages.Success, success)
			if strings.HasSuffix(r.URL.Path, "/cancel") {
				next = "/"
			}
		}
		http.Redirect(w, r, next, http.StatusSeeOther)
	}
}

func (a *app) page(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	flashes := a.flash.Pop(r.Context())
	if err := views.Render(w, r, views.Layout(title, flashes, body)); err != nil {
		httputil.InternalServerError(w, "Failed to render page", err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.BadRequest(w, "Invalid ID", err)
		return uuid.Nil, false
	}
	return id, true
}

// parseFormTime reads a datetime-local input as UTC. An empty value is nil.
func parseFormTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02T15:04", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nextURL returns the local path posted as next, or fallback.
func nextURL(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
