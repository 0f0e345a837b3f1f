package main

import (
	"context"
	"fmt"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/quillhub/quillhub-be/config"
	"github.com/quillhub/quillhub-be/db/mysql"
	"github.com/quillhub/quillhub-be/middleware"
	"github.com/quillhub/quillhub-be/routes"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatalf("[main] configuration error: %v", err)
	}
	configureLogging(conf)

	database, err := mysql.GetDatabase(conf)
	if err != nil {
		log.Fatalf("[main] error connecting to db: %v", err)
	}
	defer database.Close()

	if err = configureFirebaseCredentials(); err != nil {
		log.Fatalf("[main] error configuring firebase credentials: %v", err)
	}
	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatalf("[main] error initializing firebase: %v", err)
	}
	authClient, err := app.Auth(context.Background())
	if err != nil {
		log.Fatalf("[main] error initializing auth client: %v", err)
	}

	gin.SetMode(conf.GinMode)
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  conf.FEOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	routes.AddHealthCheckRoutes(&r.RouterGroup)
	routes.AddCommentRoutes(&r.RouterGroup, database, authClient)
	routes.AddPostRoutes(&r.RouterGroup, database, authClient)
	routes.AddUserRoutes(&r.RouterGroup, database, authClient)

	if err := r.Run(":" + conf.Port); err != nil {
		log.Fatalf("[main] error running web server: %v", err)
	}
}

func configureLogging(conf *config.Config) {
	level, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

const (
	CredentialsPathEnvVar = "GOOGLE_APPLICATION_CREDENTIALS"
	CredentialsJsonEnvVar = "GOOGLE_APPLICATION_CREDENTIALS_JSON"
	TargetCredentialsFile = "./google-application-credentials.json"
)

// configureFirebaseCredentials lets deployments pass the service account as a
// JSON string instead of a mounted file
func configureFirebaseCredentials() error {
	credentialsPath, hasCredentialsPath := os.LookupEnv(CredentialsPathEnvVar)
	if hasCredentialsPath {
		log.Infof("[main] credentials path detected in env. Expecting credentials to be at %v", credentialsPath)
		return nil
	}
	credentialsJson, hasCredentialsJson := os.LookupEnv(CredentialsJsonEnvVar)
	if hasCredentialsJson {
		log.Info("[main] credentials JSON string detected in env")
		err := os.WriteFile(TargetCredentialsFile, []byte(credentialsJson), 0400)
		if err != nil {
			return fmt.Errorf("error writing credentials to temp file, %w", err)
		}
		if err = os.Setenv(CredentialsPathEnvVar, TargetCredentialsFile); err != nil {
			return fmt.Errorf("error setting %v env var %w", CredentialsPathEnvVar, err)
		}
		return nil
	}
	return fmt.Errorf("must specify either %v (a path)"+
		" or %v (credentials as JSON string)", CredentialsPathEnvVar, CredentialsJsonEnvVar)
}
