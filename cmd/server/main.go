package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/datastore"
	"github.com/deepserve/image-classifier-api/pkg/server"
	"github.com/sirupsen/logrus"
)

const (
	defaultPort       = "5000"
	defaultDBType     = datastore.SQLite
	shutdownTimeout   = 5 * time.Second // 5s
	defaultConfigPath = "config.yaml"
)

func handleSignal() {
	// Wait for interrupt signal to gracefully shutdown the server with
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
}

func logInit(logLevel string) {
	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
		// include function and file
		logrus.SetReportCaller(true)
	case "dev":
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}

func main() {
	port := flag.String("port", defaultPort, "server listen port, default 5000")
	dbType := flag.String("dbType", string(defaultDBType), "db type default sqlite")
	configFile := flag.String("config", defaultConfigPath, "default config path")
	mode := flag.String("mode", "dev", "service work mode debug|dev|product")
	trainShell := flag.String("train", "", "external trainer launch command")
	flag.Parse()
	// init log
	logInit(*mode)
	logrus.Info("classifier api start")

	// init config
	if err := config.InitConfig(*configFile); err != nil {
		logrus.Fatal(err.Error())
	}
	if *trainShell != "" {
		config.ConfigGlobal.TrainShell = *trainShell
	}

	// init server and start
	srv, err := server.NewServer(*port, datastore.DatastoreType(*dbType), *mode)
	if err != nil {
		logrus.Fatal("server init fail")
	}
	go srv.Start()

	// wait shutdown signal
	handleSignal()

	if err := srv.Close(shutdownTimeout); err != nil {
		logrus.Fatal("Shutdown server fail")
	}

	logrus.Info("Server exited")
}
