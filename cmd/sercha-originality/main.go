package main

// @title           Sercha Originality API
// @version         1.0
// @description     Multi-layer plagiarism detection. Checks submitted text against a reference corpus with exact fingerprint, shingle and semantic matching, and suggests citations for uncited claims.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-originality/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	// Cancel on shutdown signals so servers and workers drain
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("Error: %v", err)
		stop()
		os.Exit(1)
	}
}
