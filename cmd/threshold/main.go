package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/threshold-urban/threshold/internal/api"
	"github.com/threshold-urban/threshold/internal/aqi"
	"github.com/threshold-urban/threshold/internal/hotspots"
	"github.com/threshold-urban/threshold/internal/landcover"
	"github.com/threshold-urban/threshold/internal/places"
	"github.com/threshold-urban/threshold/internal/population"
	"github.com/threshold-urban/threshold/internal/scoring"
	"github.com/threshold-urban/threshold/internal/serviceanalysis"
	"github.com/threshold-urban/threshold/internal/store"
)

type CLI struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,help='Load environment from a dotenv file.'"`

	DB               string  `kong:"default='data/threshold.db',help='Path to the SQLite database.'"`
	Port             string  `kong:"default='8000',help='HTTP server port.'"`
	ModelPath        string  `kong:"optional,help='Path to the scoring model artifact. Defaults to the well-known locations.'"`
	OverlapThreshold float64 `kong:"default='0.8',help='Minimum AOI overlap ratio for a cache hit.'"`
	GoogleMapsAPIKey string  `kong:"env='GOOGLE_MAPS_API_KEY',optional,help='Google Places API key. Absent means amenity distances fall back to defaults.'"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("threshold"),
		kong.Description("Vacant-land redevelopment scoring service."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	var scorer *scoring.Scorer
	if cli.ModelPath != "" {
		scorer = scoring.NewScorer(cli.ModelPath)
	} else {
		scorer = scoring.NewScorer(scoring.DefaultArtifactPaths...)
	}
	if scorer.Ready() {
		log.Println("scoring model loaded")
	} else {
		log.Println("no scoring model found, running in rule-based mode")
	}

	placesClient := places.NewClient(cli.GoogleMapsAPIKey)
	if !placesClient.Ready() {
		log.Println("no Google Maps API key, amenity distances use defaults")
	}

	aqiClient := aqi.NewClient()
	analyzer := hotspots.NewAnalyzer(
		st,
		scorer,
		aqiClient,
		population.NewStaticEstimator(),
		placesClient,
		landcover.NewSyntheticProvider(),
		cli.OverlapThreshold,
	)
	services := serviceanalysis.NewAnalyzer(serviceanalysis.NewOverpassClient())

	server := api.NewServer(st, analyzer, scorer, aqiClient, services, placesClient.Ready(), cli.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
