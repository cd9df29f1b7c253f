package app

import (
	"fmt"

	"github.com/allisson/community/internal/cdc"
	cdcOffset "github.com/allisson/community/internal/cdc/offset"
	outboxRepository "github.com/allisson/community/internal/outbox/repository"
	"github.com/allisson/community/internal/projection"
)

// OffsetRepository returns the change stream offset repository based on database driver.
func (c *Container) OffsetRepository() (cdcOffset.Repository, error) {
	var err error
	c.offsetRepoInit.Do(func() {
		c.offsetRepo, err = c.initOffsetRepository()
		if err != nil {
			c.initErrors["offsetRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["offsetRepo"]; exists {
		return nil, storedErr
	}
	return c.offsetRepo, nil
}

// OffsetStore returns the durable change stream offset store.
func (c *Container) OffsetStore() (cdcOffset.Store, error) {
	var err error
	c.offsetStoreInit.Do(func() {
		c.offsetStore, err = c.initOffsetStore()
		if err != nil {
			c.initErrors["offsetStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["offsetStore"]; exists {
		return nil, storedErr
	}
	return c.offsetStore, nil
}

// EventRouter returns the change event router with all projection appliers.
func (c *Container) EventRouter() (*cdc.Router, error) {
	var err error
	c.eventRouterInit.Do(func() {
		c.eventRouter, err = c.initEventRouter()
		if err != nil {
			c.initErrors["eventRouter"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRouter"]; exists {
		return nil, storedErr
	}
	return c.eventRouter, nil
}

// CDCReader returns the change stream reader.
func (c *Container) CDCReader() (*cdc.Reader, error) {
	var err error
	c.cdcReaderInit.Do(func() {
		c.cdcReader, err = c.initCDCReader()
		if err != nil {
			c.initErrors["cdcReader"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cdcReader"]; exists {
		return nil, storedErr
	}
	return c.cdcReader, nil
}

// initOffsetRepository creates the offset repository based on the database driver.
func (c *Container) initOffsetRepository() (cdcOffset.Repository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for offset repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return cdcOffset.NewPostgreSQLOffsetRepository(db), nil
	case "mysql":
		return cdcOffset.NewMySQLOffsetRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOffsetStore creates the cached offset store.
func (c *Container) initOffsetStore() (cdcOffset.Store, error) {
	repo, err := c.OffsetRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get offset repository for offset store: %w", err)
	}

	return cdcOffset.NewCachedStore(repo), nil
}

// initEventRouter creates the event router with the projection appliers.
func (c *Container) initEventRouter() (*cdc.Router, error) {
	index, err := c.SearchIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to get search index for event router: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for event router: %w", err)
	}

	logger := c.Logger()
	appliers := []projection.Applier{
		projection.NewPostDetailApplier(index, logger),
		projection.NewPostCountApplier(index, logger),
		projection.NewReactionCountApplier(index, logger),
	}

	return cdc.NewRouter(appliers, businessMetrics, logger), nil
}

// initCDCReader creates the change stream reader with all its dependencies.
func (c *Container) initCDCReader() (*cdc.Reader, error) {
	if c.config.DBDriver != "postgres" {
		return nil, fmt.Errorf("change stream reader requires the postgres driver, got: %s", c.config.DBDriver)
	}

	offsetStore, err := c.OffsetStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get offset store for change stream reader: %w", err)
	}

	router, err := c.EventRouter()
	if err != nil {
		return nil, fmt.Errorf("failed to get event router for change stream reader: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for change stream reader: %w", err)
	}

	readerConfig := cdc.ReaderConfig{
		ConnectionString:    c.config.CDCConnectionString,
		SlotName:            c.config.CDCSlotName,
		PublicationName:     c.config.CDCPublicationName,
		TableName:           outboxRepository.TableName,
		FlushInterval:       c.config.CDCFlushInterval,
		MaxReconnectBackoff: c.config.CDCMaxReconnectBackoff,
	}

	return cdc.NewReader(readerConfig, offsetStore, router, businessMetrics, c.Logger()), nil
}
