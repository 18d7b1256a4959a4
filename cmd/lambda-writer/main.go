// Command lambda-writer is the Lambda entrypoint for a writer node: it
// accepts mutation/query HTTP requests through API Gateway and applies them
// to the Access Manager before flushing through the EventBuffer. Grounded on
// the teacher's cmd/lambda/main.go cold-start/init() pattern, trimmed of the
// JWT-authorizer header rewriting that pattern does (authn/authz enforcement
// is a Non-goal here).
package main

import (
	"context"
	"log"
	"os"
	"time"

	"applicationaccess/internal/config"
	"applicationaccess/internal/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
	coldStart = true
)

func init() {
	start := time.Now()
	log.Println("lambda-writer cold start initiated")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	env := config.Environment(os.Getenv("APP_ENV"))
	if env == "" {
		env = config.Development
	}
	cfg, err := config.NewLoader(os.Getenv("CONFIG_PATH"), env).Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	container, err = di.BuildWriterContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build writer container: %v", err)
	}

	handler := container.HTTPServer.Setup()
	chiRouter, ok := handler.(*chi.Mux)
	if !ok {
		log.Fatal("writer router did not produce a *chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	log.Printf("lambda-writer cold start completed in %v", time.Since(start))
}

// Handler adapts an API Gateway v2 HTTP request into the chi router built
// by BuildWriterContainer.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		container.Logger.Error("lambda-writer request failed",
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Error(err),
		)
	}
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
