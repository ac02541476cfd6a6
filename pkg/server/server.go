package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/datastore"
	"github.com/deepserve/image-classifier-api/pkg/handler"
	"github.com/deepserve/image-classifier-api/pkg/inference"
	"github.com/deepserve/image-classifier-api/pkg/log"
	"github.com/deepserve/image-classifier-api/pkg/module"
	"github.com/deepserve/image-classifier-api/pkg/paths"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	srv        *http.Server
	listenTask *module.ListenDbTask
	jobStore   datastore.Datastore
}

func NewServer(port string, dbType datastore.DatastoreType, mode string) (*Server, error) {
	// init oss manager, remote sync is best-effort
	if config.ConfigGlobal.EnableOss() {
		if err := module.NewOssManager(); err != nil {
			logrus.Warnf("oss init error, remote sync disabled: %v", err)
		} else {
			module.PullModels(config.ConfigGlobal.ModelsDir)
		}
	}

	tableFactory := datastore.DatastoreFactory{}
	// init train jobs table
	jobStore := tableFactory.NewTable(dbType, datastore.KJobTableName)
	// init cancel listen task
	listenTask := module.NewListenDbTask(config.ConfigGlobal.ListenInterval, jobStore)

	resolver := paths.NewResolver(config.ConfigGlobal.ModelsDir)
	state := inference.NewState(resolver)
	launcher := module.NewExecLauncher(jobStore, resolver)

	// init handler
	apiHandler := handler.NewHandler(state, jobStore, launcher, listenTask, resolver)

	// init router
	if mode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(CORSMiddleware())
	router.Use(gin.Logger(), gin.Recovery())
	handler.RegisterHandlers(router, apiHandler)

	return &Server{
		srv: &http.Server{
			Addr:    net.JoinHostPort("0.0.0.0", port),
			Handler: router,
		},
		listenTask: listenTask,
		jobStore:   jobStore,
	}, nil
}

// Start serving
func (p *Server) Start() error {
	if err := p.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.Fatalf("listen: %s\n", err)
		return err
	}
	return nil
}

// Close shutdown server, timeout=shutdownTimeout
func (p *Server) Close(shutdownTimeout time.Duration) error {
	// close listen task
	if p.listenTask != nil {
		p.listenTask.Close()
	}
	if p.jobStore != nil {
		p.jobStore.Close()
	}
	log.TrainLogInstance.Close()
	// shutdown server
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.srv.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
		return err
	}
	return nil
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "false")
		c.Next()
	}
}
