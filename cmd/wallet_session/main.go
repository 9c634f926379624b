package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_session/internal/app/port"
	"wallet_session/internal/app/service"
	historyclient "wallet_session/internal/client"
	"wallet_session/internal/infrastructure/configloader"
	clientprovider "wallet_session/internal/infrastructure/network/client"
	networkdefinition "wallet_session/internal/infrastructure/network/definition"
	"wallet_session/internal/infrastructure/restapi"
	"wallet_session/internal/infrastructure/tokenloader"
	"wallet_session/internal/pkg/logger"
	"wallet_session/internal/pkg/metrics"
	"wallet_session/internal/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "config/config.yml"

func main() {
	cfgPath := utils.GetEnv("CONFIG_PATH", defaultConfigPath)
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	logger.Info("Wallet session service starting", "config", cfgPath, "network", cfg.Network)
	metrics.MustRegisterMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	netDefProvider := networkdefinition.NewNetworkDefinitionProvider(logger.NewComponentLogger("networks"))
	network, ok := netDefProvider.GetNetworkDefinitionByName(cfg.Network)
	if !ok {
		logger.Fatal("Unknown network identifier in configuration", "network", cfg.Network)
	}

	var (
		signingProvider port.SigningProvider
		clientVersion   string
	)
	connectTimeout := time.Duration(cfg.Provider.ConnectTimeoutSeconds) * time.Second
	handle, err := clientprovider.DialSigningProvider(ctx, cfg.Provider.URLs, connectTimeout, logger.NewComponentLogger("dial"))
	if err != nil {
		logger.Warn("Running without a signing provider", "error", err)
	} else {
		defer handle.Close()
		signingProvider = handle.Client
		clientVersion = handle.ClientVersion
		if handle.ChainID != nil && handle.ChainID.Uint64() != network.ChainID {
			providerNetwork := "unknown"
			if def, known := netDefProvider.GetNetworkDefinitionByChainID(handle.ChainID.Uint64()); known {
				providerNetwork = def.Identifier
			}
			logger.Warn("Signing provider is on a different chain than configured",
				"configured_network", network.Identifier,
				"configured_chain_id", network.ChainID,
				"provider_network", providerNetwork,
				"provider_chain_id", handle.ChainID.String())
		}
	}

	gateway := clientprovider.NewProviderGateway(signingProvider, clientprovider.GatewayOptions{
		ClientVersion:  clientVersion,
		ExpectedClient: cfg.Provider.ExpectedClient,
		CallTimeout:    time.Duration(cfg.Provider.CallTimeoutSeconds) * time.Second,
	}, logger.NewComponentLogger("gateway"))
	defer gateway.Close()
	if gateway.Detect() {
		logger.Info("Signing provider detected", "client", gateway.ClientVersion())
	} else if signingProvider != nil {
		logger.Warn("Signing provider is not a supported wallet", "client", gateway.ClientVersion(), "expected", cfg.Provider.ExpectedClient)
	}

	historyBaseURL := cfg.HistoryService.BaseURL
	if historyBaseURL == "" {
		historyBaseURL = network.HistoryAPIURL
	}
	historyAPIClient := historyclient.NewEtherscanClient(historyclient.EtherscanOptions{
		BaseURL:            historyBaseURL,
		APIKey:             cfg.HistoryService.APIKey,
		ChainID:            network.ChainID,
		Timeout:            time.Duration(cfg.HistoryService.RequestTimeoutMillis) * time.Millisecond,
		MaxResults:         cfg.HistoryService.MaxResults,
		RateLimitPerSecond: cfg.HistoryService.RateLimitPerSecond,
		RateLimitBurst:     cfg.HistoryService.RateLimitBurst,
	}, zapLogger)

	historyFetcher := service.NewHistoryFetcher(historyAPIClient, logger.NewComponentLogger("history"))
	tokenRegistry := service.NewTokenRegistry(gateway, logger.NewComponentLogger("tokens"),
		time.Duration(cfg.Tokens.MetadataCacheTTLMinutes)*time.Minute)
	session := service.NewSessionService(gateway, tokenRegistry, historyFetcher, network, logger.NewComponentLogger("session"))
	defer session.Close()

	tokenProvider := tokenloader.NewTokenLoader(cfg.Tokens.DataDir, logger.NewComponentLogger("tokenloader"))
	seeds, err := tokenProvider.GetTokensForNetwork(network)
	if err != nil {
		logger.Warn("Seed tokens unavailable", "error", err)
	}

	go session.Run(ctx)
	go gateway.WatchAccounts(ctx, time.Duration(cfg.Provider.AccountPollIntervalSeconds)*time.Second)
	go func() {
		session.Bootstrap(ctx)
		session.SeedTokens(ctx, seeds)
	}()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewSessionHandler(session, logger.NewComponentLogger("api"))
	router := restapi.SetupRouter(handler, restapi.RouterOptions{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		SwaggerEnabled:  cfg.Server.SwaggerEnabled,
		SwaggerSpecPath: cfg.Server.SwaggerSpecPath,
		MetricsEnabled:  cfg.Server.MetricsEnabled,
		PprofEnabled:    cfg.Server.PprofEnabled,
	}, zapLogger.Named("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	go func() {
		zapLogger.Info("HTTP server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
	} else {
		logger.Info("HTTP server stopped.")
	}

	logger.Info("Wallet session service stopped.")
}
