package app

import (
	"fmt"

	postsHTTP "github.com/allisson/community/internal/posts/http"
	postsRepository "github.com/allisson/community/internal/posts/repository"
	postsUseCase "github.com/allisson/community/internal/posts/usecase"
)

// PostRepository returns the post repository instance.
func (c *Container) PostRepository() (postsUseCase.PostRepository, error) {
	var err error
	c.postRepoInit.Do(func() {
		c.postRepo, err = c.initPostRepository()
		if err != nil {
			c.initErrors["postRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["postRepo"]; exists {
		return nil, storedErr
	}
	return c.postRepo, nil
}

// CommentRepository returns the comment repository instance.
func (c *Container) CommentRepository() (postsUseCase.CommentRepository, error) {
	var err error
	c.commentRepoInit.Do(func() {
		c.commentRepo, err = c.initCommentRepository()
		if err != nil {
			c.initErrors["commentRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["commentRepo"]; exists {
		return nil, storedErr
	}
	return c.commentRepo, nil
}

// ReactionRepository returns the reaction repository instance.
func (c *Container) ReactionRepository() (postsUseCase.ReactionRepository, error) {
	var err error
	c.reactionRepoInit.Do(func() {
		c.reactionRepo, err = c.initReactionRepository()
		if err != nil {
			c.initErrors["reactionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["reactionRepo"]; exists {
		return nil, storedErr
	}
	return c.reactionRepo, nil
}

// AuthorRepository returns the author repository instance.
func (c *Container) AuthorRepository() (postsUseCase.AuthorRepository, error) {
	var err error
	c.authorRepoInit.Do(func() {
		c.authorRepo, err = c.initAuthorRepository()
		if err != nil {
			c.initErrors["authorRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authorRepo"]; exists {
		return nil, storedErr
	}
	return c.authorRepo, nil
}

// CategoryRepository returns the category repository instance.
func (c *Container) CategoryRepository() (postsUseCase.CategoryRepository, error) {
	var err error
	c.categoryRepoInit.Do(func() {
		c.categoryRepo, err = c.initCategoryRepository()
		if err != nil {
			c.initErrors["categoryRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["categoryRepo"]; exists {
		return nil, storedErr
	}
	return c.categoryRepo, nil
}

// PostUseCase returns the post use case instance, wrapped with metrics.
func (c *Container) PostUseCase() (postsUseCase.PostUseCase, error) {
	var err error
	c.postUseCaseInit.Do(func() {
		c.postUseCase, err = c.initPostUseCase()
		if err != nil {
			c.initErrors["postUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["postUseCase"]; exists {
		return nil, storedErr
	}
	return c.postUseCase, nil
}

// ReadService returns the dual-source read service instance.
func (c *Container) ReadService() (postsUseCase.ReadService, error) {
	var err error
	c.readServiceInit.Do(func() {
		c.readService, err = c.initReadService()
		if err != nil {
			c.initErrors["readService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["readService"]; exists {
		return nil, storedErr
	}
	return c.readService, nil
}

// PostHandler returns the HTTP handler for post operations.
func (c *Container) PostHandler() (*postsHTTP.PostHandler, error) {
	var err error
	c.postHandlerInit.Do(func() {
		c.postHandler, err = c.initPostHandler()
		if err != nil {
			c.initErrors["postHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["postHandler"]; exists {
		return nil, storedErr
	}
	return c.postHandler, nil
}

// requirePostgres rejects drivers the posts context does not support. The
// detail and search queries use PostgreSQL syntax and the change stream
// requires PostgreSQL, so the content schema is postgres-only.
func (c *Container) requirePostgres() error {
	if c.config.DBDriver != "postgres" {
		return fmt.Errorf("posts repositories require the postgres driver, got: %s", c.config.DBDriver)
	}
	return nil
}

// initPostRepository creates the post repository instance.
func (c *Container) initPostRepository() (postsUseCase.PostRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for post repository: %w", err)
	}

	if err := c.requirePostgres(); err != nil {
		return nil, err
	}

	return postsRepository.NewPostgreSQLPostRepository(db), nil
}

// initCommentRepository creates the comment repository instance.
func (c *Container) initCommentRepository() (postsUseCase.CommentRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for comment repository: %w", err)
	}

	if err := c.requirePostgres(); err != nil {
		return nil, err
	}

	return postsRepository.NewPostgreSQLCommentRepository(db), nil
}

// initReactionRepository creates the reaction repository instance.
func (c *Container) initReactionRepository() (postsUseCase.ReactionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for reaction repository: %w", err)
	}

	if err := c.requirePostgres(); err != nil {
		return nil, err
	}

	return postsRepository.NewPostgreSQLReactionRepository(db), nil
}

// initAuthorRepository creates the author repository instance.
func (c *Container) initAuthorRepository() (postsUseCase.AuthorRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for author repository: %w", err)
	}

	if err := c.requirePostgres(); err != nil {
		return nil, err
	}

	return postsRepository.NewPostgreSQLAuthorRepository(db), nil
}

// initCategoryRepository creates the category repository instance.
func (c *Container) initCategoryRepository() (postsUseCase.CategoryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for category repository: %w", err)
	}

	if err := c.requirePostgres(); err != nil {
		return nil, err
	}

	return postsRepository.NewPostgreSQLCategoryRepository(db), nil
}

// initPostUseCase creates the post use case with all its dependencies.
func (c *Container) initPostUseCase() (postsUseCase.PostUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for post use case: %w", err)
	}

	postRepo, err := c.PostRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get post repository for post use case: %w", err)
	}

	commentRepo, err := c.CommentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get comment repository for post use case: %w", err)
	}

	reactionRepo, err := c.ReactionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction repository for post use case: %w", err)
	}

	authorRepo, err := c.AuthorRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get author repository for post use case: %w", err)
	}

	categoryRepo, err := c.CategoryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get category repository for post use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for post use case: %w", err)
	}

	useCase := postsUseCase.NewPostUseCase(
		txManager,
		postRepo,
		commentRepo,
		reactionRepo,
		authorRepo,
		categoryRepo,
		outboxRepo,
	)

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for post use case: %w", err)
	}

	return postsUseCase.NewPostUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initReadService creates the read service with all its dependencies.
func (c *Container) initReadService() (postsUseCase.ReadService, error) {
	index, err := c.SearchIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to get search index for read service: %w", err)
	}

	postRepo, err := c.PostRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get post repository for read service: %w", err)
	}

	return postsUseCase.NewReadService(
		index,
		postRepo,
		c.config.TrendingWindow,
		c.config.TrendingLimit,
		c.Logger(),
	), nil
}

// initPostHandler creates the post HTTP handler.
func (c *Container) initPostHandler() (*postsHTTP.PostHandler, error) {
	useCase, err := c.PostUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get post use case for post handler: %w", err)
	}

	readService, err := c.ReadService()
	if err != nil {
		return nil, fmt.Errorf("failed to get read service for post handler: %w", err)
	}

	return postsHTTP.NewPostHandler(useCase, readService, c.Logger()), nil
}
