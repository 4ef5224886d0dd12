package main

import (
	"log"

	"go-signal-server/config"
	"go-signal-server/controllers"
	"go-signal-server/janus"
	"go-signal-server/repo"
	"go-signal-server/routes"
	"go-signal-server/service"
)

func main() {
	config.ConnectDatabase()
	// Initialize repository, service, and controller
	signalRepo := repo.NewSignalRepository(config.DB)
	signalService := service.NewSignalService(signalRepo)
	signalController := controllers.NewSignalController(signalService)

	relay, err := janus.NewClient(janus.ClientConfig{BaseURL: config.AppConfig.JanusURL})
	if err != nil {
		log.Fatal(err)
	}
	echoService := service.NewEchoTestService(relay, config.AppConfig.EchoMaxDuration)
	echoController := controllers.NewEchoController(echoService)

	r := routes.NewRoute(signalController, echoController, config.AppConfig.StunURLs)
	err = r.Run()
	if err != nil {
		log.Fatal(err)
		return
	}
}
