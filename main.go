package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/user"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jessevdk/go-flags"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	dataDir        = ".frelliscup"
	dbName         = "frelliscup.db"
	jwtKeyHex      = "7b1f04c2a9de33c10b7c5ce06a5de6f3c3a3bd06f0e1c24c8a6c3fca9e0b51dd"
	userContextKey = contextKey("user")
)

type contextKey string

type Options struct {
	DataDir     string `short:"d" long:"datadir" description:"Directory to store the database"`
	Listen      string `short:"l" long:"listen" default:":8080" description:"Interface and port to listen on"`
	DevMode     bool   `long:"devmode" description:"Use insecure cookies for local development"`
	SeedFile    string `long:"seed" description:"YAML tournament setup file imported at startup"`
	HandicapURL string `long:"hcpurl" description:"Club roster page used to sync course handicaps"`
}

type Server struct {
	db               *gorm.DB
	r                chi.Router
	devMode          bool
	handicapURL      string
	loginRateLimiter *limiter.Limiter
}

var jwtKey []byte

func init() {
	var err error
	jwtKey, err = hex.DecodeString(jwtKeyHex)
	if err != nil {
		log.Fatal("error parsing jwt key")
	}
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	db, err := initDatabase(opts.DataDir)
	if err != nil {
		log.Fatalf("Database initialization errored: %s", err)
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		db:          db,
		r:           r,
		devMode:     opts.DevMode,
		handicapURL: opts.HandicapURL,
		loginRateLimiter: limiter.New(memory.NewStore(), limiter.Rate{
			Period: 15 * time.Minute,
			Limit:  10,
		}),
	}

	if opts.SeedFile != "" {
		if err := seedFromFile(db, opts.SeedFile); err != nil {
			log.Fatalf("Seed file import errored: %s", err)
		}
	}

	s.registerRoutes()

	log.Printf("Listening on %s", opts.Listen)
	if err := http.ListenAndServe(opts.Listen, r); err != nil {
		log.Fatal(err)
	}
}

func (s *Server) registerRoutes() {
	r := s.r

	// Auth
	r.Post("/login", s.POSTLoginHandler)
	r.Post("/logout", s.POSTLogoutHandler)
	r.Post("/auth/me", authMiddleware(s.POSTAuthMe))
	r.Post("/changepw", authMiddleware(s.POSTChangePasswordHandler))
	r.Post("/users", adminMiddleware(s.POSTUserHandler))

	// Tournament setup
	r.Get("/teams", s.GETTeams)
	r.Post("/teams", adminMiddleware(s.POSTTeam))
	r.Get("/courses", s.GETCourses)
	r.Get("/courses/{day}", s.GETCourse)
	r.Post("/courses", adminMiddleware(s.POSTCourse))
	r.Delete("/courses/{day}", adminMiddleware(s.DELETECourse))
	r.Get("/players", s.GETPlayers)
	r.Post("/players", adminMiddleware(s.POSTPlayer))
	r.Put("/players/{playerID}", adminMiddleware(s.PUTPlayer))
	r.Delete("/players/{playerID}", adminMiddleware(s.DELETEPlayer))
	r.Post("/players/synchcp", adminMiddleware(s.POSTSyncHandicaps))
	r.Get("/sides", s.GETSides)
	r.Post("/sides", adminMiddleware(s.POSTSide))
	r.Post("/matches", adminMiddleware(s.POSTMatch))
	r.Delete("/matches/{matchID}", adminMiddleware(s.DELETEMatch))
	r.Post("/setup/import", adminMiddleware(s.POSTSetupImport))

	// Player claims
	r.Get("/claims", s.GETClaims)
	r.Post("/claim", authMiddleware(s.POSTClaim))
	r.Delete("/claim", authMiddleware(s.DELETEClaim))

	// Score entry
	r.Put("/matches/{matchID}/scores", authMiddleware(s.PUTScore))
	r.Delete("/matches/{matchID}/scores", authMiddleware(s.DELETEScore))

	// Derived views. These recompute from the raw snapshot on every
	// request; nothing derived is ever stored.
	r.Get("/matches", s.GETMatches)
	r.Get("/matches/{matchID}", s.GETMatchScorecard)
	r.Get("/days/{day}", s.GETDayScore)
	r.Get("/standings", s.GETStandings)
}

// Check to see if the database exists. If not create it and initialize
// it with a default admin password to be changed later.
func initDatabase(dir string) (*gorm.DB, error) {
	if dir == "" {
		// Get the OS specific home directory via the Go standard lib.
		var homeDir string
		usr, err := user.Current()
		if err == nil {
			homeDir = usr.HomeDir
		}

		// Fall back to standard HOME environment variable that works
		// for most POSIX OSes if the directory from the Go standard
		// lib failed.
		if err != nil || homeDir == "" {
			homeDir = os.Getenv("HOME")
		}
		dir = path.Join(homeDir, dataDir)
	}

	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path.Join(dir, dbName)), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := applyMigrations(db); err != nil {
		return nil, err
	}

	var creds DBCredentials
	result := db.First(&creds)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			result := db.Create(&DBCredentials{Username: "admin", PasswordHash: string(hash), Admin: true})
			if result.Error != nil {
				return nil, err
			}
		} else {
			return nil, result.Error
		}
	}

	return db, nil
}

func applyMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&DBCredentials{},
		&Team{},
		&Course{},
		&CourseHole{},
		&Player{},
		&Side{},
		&Match{},
		&GrossScore{},
		&PlayerClaim{},
	)
}

// Validate the JWT token. It can either been in a cookie or a header.
func authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requestClaims(r)
		if !ok {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Token is valid, proceed
		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Like authMiddleware but also requires the admin flag on the claims.
func adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requestClaims(r)
		if !ok {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		if !claims.Admin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func requestClaims(r *http.Request) (*Claims, bool) {
	var tokenStr string

	// First try Authorization header
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) >= 7 && authHeader[:7] == "Bearer " {
		tokenStr = authHeader[7:]
	} else {
		// Fallback to auth_token cookie
		cookie, err := r.Cookie("auth_token")
		if err != nil {
			return nil, false
		}
		tokenStr = cookie.Value
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}
