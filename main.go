package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/ventasimple/license-api/api/handlers"
	"github.com/ventasimple/license-api/config"
	"github.com/ventasimple/license-api/logging"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	// swap the bootstrap logger for the production one before serving
	zap.ReplaceGlobals(logging.New().Desugar())

	if err := a.Initialize(); err != nil { //initialize database, signer, billing and router
		log.Fatal(err)
	}

	port := os.Getenv("PORT")
	baseURL := os.Getenv("BASE_URL")
	zap.S().Infow("license-api is up and running",
		"port", port,
		"url", baseURL,
	)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", port), a.Router))
}
