package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opendoors/invoice-agent/internal/config"
	"github.com/opendoors/invoice-agent/internal/core/domain"
	"github.com/opendoors/invoice-agent/internal/core/ports"
	"github.com/opendoors/invoice-agent/internal/core/usecase"
	"github.com/opendoors/invoice-agent/internal/infrastructure/analysis/docintel"
	"github.com/opendoors/invoice-agent/internal/infrastructure/index/azsearch"
	"github.com/opendoors/invoice-agent/internal/infrastructure/llm/ollama"
	"github.com/opendoors/invoice-agent/internal/infrastructure/queue/nats"
	"github.com/opendoors/invoice-agent/internal/infrastructure/repository/postgres"
	"github.com/opendoors/invoice-agent/internal/infrastructure/resilience"
	"github.com/opendoors/invoice-agent/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Uploads   ports.UploadRepository
	SubmitUC  ports.UploadSubmitter
	ProcessUC ports.UploadProcessor
	AskUC     ports.QuestionAnswerer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	uploads := postgres.NewUploadRepository(db)
	if err := uploads.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	conversations := postgres.NewConversationRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executorCfg := resilience.DefaultConfig()
	generator := ollama.New(cfg.OllamaURL, cfg.OllamaModel).
		WithExecutor(resilience.NewExecutor(executorCfg))
	index := azsearch.New(cfg.SearchEndpoint, cfg.SearchIndexName, cfg.SearchAPIKey).
		WithExecutor(resilience.NewExecutor(executorCfg))
	analyzer := docintel.New(cfg.DocIntelEndpoint, cfg.DocIntelAPIKey, log)

	// Profile order matters: the first accepted model decides the invoice
	// type, so issued invoices are always tried before received ones.
	profiles := []domain.AnalyzerProfile{
		{ModelID: cfg.IssuedModelID, ExpectedDocType: cfg.IssuedModelID, InvoiceType: domain.TypeIncome},
		{ModelID: cfg.ReceivedModelID, ExpectedDocType: cfg.ReceivedModelID, InvoiceType: domain.TypeExpense},
	}
	classifier := usecase.NewClassifier(analyzer, profiles, cfg.ConfidenceThreshold, log)

	ingestUC := usecase.NewIngestInvoiceUseCase(index, classifier, log)
	submitUC := usecase.NewSubmitUploadUseCase(uploads, storage, queue, cfg.Partners)
	processUC := usecase.NewProcessUploadUseCase(uploads, storage, ingestUC, log)

	router := usecase.NewQuestionRouter(generator, log)
	filters := usecase.NewFilterSynthesizer(generator, cfg.Partners, log)
	aggregator := usecase.NewAggregator(index, log)
	composer := usecase.NewAnswerComposer(generator, log)
	askUC := usecase.NewAskQuestionUseCase(router, filters, aggregator, composer, index, conversations, log)

	return &App{
		Config: cfg,
		Queue:  queue,

		Uploads:   uploads,
		SubmitUC:  submitUC,
		ProcessUC: processUC,
		AskUC:     askUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
