package app

import (
	"fmt"

	outboxRepository "github.com/allisson/community/internal/outbox/repository"
	outboxUseCase "github.com/allisson/community/internal/outbox/usecase"
)

// OutboxRepository returns the outbox event repository based on database driver.
func (c *Container) OutboxRepository() (outboxUseCase.OutboxEventRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// OutboxPublisher returns the polling outbox publisher.
func (c *Container) OutboxPublisher() (outboxUseCase.UseCase, error) {
	var err error
	c.outboxPublisherInit.Do(func() {
		c.outboxPublisher, err = c.initOutboxPublisher()
		if err != nil {
			c.initErrors["outboxPublisher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxPublisher"]; exists {
		return nil, storedErr
	}
	return c.outboxPublisher, nil
}

// initOutboxRepository creates the outbox event repository based on the database driver.
func (c *Container) initOutboxRepository() (outboxUseCase.OutboxEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxEventRepository(db), nil
	case "mysql":
		return outboxRepository.NewMySQLOutboxEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOutboxPublisher creates the outbox publisher with all its dependencies.
// The event router serves as deliverer, so published events take the same
// path into the search index as change stream events.
func (c *Container) initOutboxPublisher() (outboxUseCase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox publisher: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox publisher: %w", err)
	}

	router, err := c.EventRouter()
	if err != nil {
		return nil, fmt.Errorf("failed to get event router for outbox publisher: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox publisher: %w", err)
	}

	publisherConfig := outboxUseCase.Config{
		PublishInterval: c.config.OutboxPublishInterval,
		RetryInterval:   c.config.OutboxRetryInterval,
		CleanupInterval: c.config.OutboxCleanupInterval,
		BatchSize:       c.config.OutboxBatchSize,
		MaxRetries:      c.config.OutboxMaxRetries,
		RetryAfter:      c.config.OutboxRetryAfter,
		Retention:       c.config.OutboxRetention,
	}

	return outboxUseCase.NewPublisher(
		publisherConfig,
		txManager,
		outboxRepo,
		router,
		businessMetrics,
		c.Logger(),
	), nil
}
