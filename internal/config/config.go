package config // package config loads application configuration from environment variables

import (
	"log"  // log reports configuration errors and halts execution
	"os"   // os provides access to environment variables
	"time" // time resolves the canonical meal time zone

	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Meal windows and the canonical time zone
// drive the confirmation time-window guard and are therefore part of the
// core configuration rather than tuning knobs.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify access and QR scan tokens

	MealLocation *time.Location                          // canonical zone for "today" and window checks
	MealWindows  map[mealtime.MealType]mealtime.Window   // per-meal confirmation windows
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing or
// malformed values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		MealLocation: mustLocation("MEAL_TZ", "Asia/Shanghai"),
		MealWindows:  loadMealWindows(),
	}
}

// Schedule builds the mealtime schedule from the loaded configuration.
func (c Config) Schedule() *mealtime.Schedule {
	return mealtime.NewSchedule(c.MealLocation, c.MealWindows)
}

// loadMealWindows reads optional per-meal window overrides of the form
// MEAL_WINDOW_LUNCH=11:00-13:30.  Meals without an override fall back to
// the defaults in the mealtime package.
func loadMealWindows() map[mealtime.MealType]mealtime.Window {
	vars := map[mealtime.MealType]string{
		mealtime.Breakfast: "MEAL_WINDOW_BREAKFAST",
		mealtime.Lunch:     "MEAL_WINDOW_LUNCH",
		mealtime.Dinner:    "MEAL_WINDOW_DINNER",
	}
	windows := make(map[mealtime.MealType]mealtime.Window)
	for meal, key := range vars {
		spec := os.Getenv(key)
		if spec == "" {
			continue
		}
		w, err := mealtime.ParseWindow(spec)
		if err != nil {
			log.Fatalf("invalid %s: %v", key, err)
		}
		windows[meal] = w
	}
	return windows
}

// mustLocation resolves an IANA zone name from the environment, falling
// back to def when unset.  Unknown zones are fatal.
func mustLocation(key, def string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		name = def
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid time zone for %s: %q", key, name)
	}
	return loc
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
