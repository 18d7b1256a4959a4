// Command lambda-reader is the Lambda entrypoint for a reader node replica:
// it serves access-check queries from its own Access Manager copy, refreshed
// from the EventCache/persistent store by internal/reader.Node. Grounded on
// the teacher's cmd/lambda/main.go cold-start pattern, mirroring
// cmd/lambda-writer with BuildReaderContainer in place of BuildWriterContainer.
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
)

func init() {
	start := time.Now()
	log.Println("lambda-reader cold start initiated")

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

	container, err = di.BuildReaderContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build reader container: %v", err)
	}

	if err := container.ReaderNode.Refresh(ctx); err != nil {
		log.Printf("initial reader refresh failed, serving until a later refresh succeeds: %v", err)
	}

	handler := container.HTTPServer.Setup()
	chiRouter, ok := handler.(*chi.Mux)
	if !ok {
		log.Fatal("reader router did not produce a *chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	log.Printf("lambda-reader cold start completed in %v", time.Since(start))
}

// Handler adapts an API Gateway v2 HTTP request into the chi router built
// by BuildReaderContainer.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		container.Logger.Error("lambda-reader request failed",
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Error(err),
		)
	}
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
