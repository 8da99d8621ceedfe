package services_test

import (
	"fmt"
	"sync"
	"testing"

	"bookshelf/internal/database"
	"bookshelf/internal/models"
	"bookshelf/internal/repositories"
	"bookshelf/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// staticUsers resolves principals from a fixed set of users.
type staticUsers map[string]*models.User

func (s staticUsers) CurrentUser(p *services.Principal) (*models.User, error) {
	if p == nil {
		return nil, services.ErrUnauthenticated
	}
	u, ok := s[p.Username]
	if !ok {
		return nil, services.ErrUnauthenticated
	}
	return u, nil
}

func readers(names ...string) staticUsers {
	users := staticUsers{}
	for _, n := range names {
		users[n] = &models.User{ID: "id-" + n, Username: n, Role: models.RoleUser}
	}
	return users
}

func principal(name string) *services.Principal {
	return &services.Principal{UserID: "id-" + name, Username: name, Role: models.RoleUser}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestBookService_Create(t *testing.T) {
	mockRepo := new(MockBookRepository)
	publisher := new(MockPublisher)
	service := services.NewBookService(mockRepo, readers(), quietLogger())
	service.SetPublisher(publisher)

	mockRepo.On("ExistsByTitle", "Dune").Return(false, nil).Once()
	mockRepo.On("Create", mock.MatchedBy(func(b *models.Book) bool {
		return b.Title == "Dune" && b.Rating == 0 && b.RatingCount == 0
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Book).ID = "book-1"
	}).Return(nil).Once()
	publisher.On("PublishEvent", services.EventBookCreated, map[string]interface{}{"bookID": "book-1", "title": "Dune"}).Return(nil).Once()

	book, err := service.Create(services.BookInput{Title: "Dune", Author: "Frank Herbert", Year: 1965})

	require.NoError(t, err)
	assert.Equal(t, "book-1", book.ID)
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestBookService_Create_Rejects(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewBookService(mockRepo, readers(), quietLogger())

	_, err := service.Create(services.BookInput{Title: "  ", Author: "A", Year: 2000})
	assert.ErrorIs(t, err, services.ErrInvalidArgument)

	_, err = service.Create(services.BookInput{Title: "T", Author: "", Year: 2000})
	assert.ErrorIs(t, err, services.ErrInvalidArgument)

	mockRepo.On("ExistsByTitle", "Dune").Return(true, nil).Once()
	_, err = service.Create(services.BookInput{Title: "Dune", Author: "A", Year: 2000})
	assert.ErrorIs(t, err, services.ErrDuplicateTitle)

	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestBookService_Get_NotFound(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewBookService(mockRepo, readers(), quietLogger())

	mockRepo.On("GetByID", "missing").Return(nil, repositories.ErrNotFound).Once()
	_, err := service.Get("missing")
	assert.ErrorIs(t, err, services.ErrBookNotFound)
}

func TestBookService_Update(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		mockRepo := new(MockBookRepository)
		service := services.NewBookService(mockRepo, readers(), quietLogger())
		mockRepo.On("GetByIDForUpdate", "missing").Return(nil, repositories.ErrNotFound).Once()

		_, err := service.Update("missing", models.BookPatch{Title: strPtr("X")})
		assert.ErrorIs(t, err, services.ErrBookNotFound)
	})

	t.Run("no changes", func(t *testing.T) {
		mockRepo := new(MockBookRepository)
		service := services.NewBookService(mockRepo, readers(), quietLogger())
		mockRepo.On("GetByIDForUpdate", "b1").Return(&models.Book{ID: "b1", Title: "Dune", Author: "FH", Year: 1965}, nil).Once()

		updated, err := service.Update("b1", models.BookPatch{Title: strPtr("Dune"), Year: intPtr(1965)})
		assert.NoError(t, err)
		assert.False(t, updated)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything)
	})

	t.Run("changes applied", func(t *testing.T) {
		mockRepo := new(MockBookRepository)
		service := services.NewBookService(mockRepo, readers(), quietLogger())
		mockRepo.On("GetByIDForUpdate", "b1").Return(&models.Book{ID: "b1", Title: "Dune", Author: "FH", Year: 1965, Rating: 4.5}, nil).Once()
		mockRepo.On("Update", &models.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert", Year: 1966, Rating: 4.5}).Return(nil).Once()

		updated, err := service.Update("b1", models.BookPatch{Author: strPtr("Frank Herbert"), Year: intPtr(1966)})
		assert.NoError(t, err)
		assert.True(t, updated)
		mockRepo.AssertExpectations(t)
	})

	t.Run("title collision", func(t *testing.T) {
		mockRepo := new(MockBookRepository)
		service := services.NewBookService(mockRepo, readers(), quietLogger())
		mockRepo.On("GetByIDForUpdate", "b1").Return(&models.Book{ID: "b1", Title: "Dune"}, nil).Once()
		mockRepo.On("ExistsByTitle", "Emma").Return(true, nil).Once()

		_, err := service.Update("b1", models.BookPatch{Title: strPtr("Emma")})
		assert.ErrorIs(t, err, services.ErrDuplicateTitle)
	})
}

func TestBookService_Delete(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewBookService(mockRepo, readers(), quietLogger())

	mockRepo.On("GetByIDForUpdate", "missing").Return(nil, repositories.ErrNotFound).Once()
	assert.ErrorIs(t, service.Delete("missing"), services.ErrBookNotFound)

	mockRepo.On("GetByIDForUpdate", "b1").Return(&models.Book{ID: "b1"}, nil).Once()
	mockRepo.On("DeleteRatings", "b1").Return(nil).Once()
	mockRepo.On("Delete", "b1").Return(nil).Once()
	assert.NoError(t, service.Delete("b1"))
	mockRepo.AssertExpectations(t)
}

func TestBookService_Rate_AveragesDistinctRaters(t *testing.T) {
	repo := repositories.NewMemoryBookRepository()
	service := services.NewBookService(repo, readers("ann", "ben", "cat"), quietLogger())

	book, err := service.Create(services.BookInput{Title: "Dune", Author: "Frank Herbert", Year: 1965})
	require.NoError(t, err)

	for name, value := range map[string]float64{"ann": 3, "ben": 4, "cat": 5} {
		_, err := service.Rate(principal(name), book.ID, value)
		require.NoError(t, err)
	}

	got, err := service.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Rating)
	assert.Equal(t, int64(3), got.RatingCount)

	_, err = service.Rate(principal("ann"), book.ID, 1)
	assert.ErrorIs(t, err, services.ErrAlreadyRated)

	got, err = service.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Rating, "a rejected rating leaves the average untouched")
}

func TestBookService_Rate_Rejects(t *testing.T) {
	repo := repositories.NewMemoryBookRepository()
	service := services.NewBookService(repo, readers("ann"), quietLogger())
	book, err := service.Create(services.BookInput{Title: "Dune", Author: "Frank Herbert", Year: 1965})
	require.NoError(t, err)

	_, err = service.Rate(nil, book.ID, 3)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	_, err = service.Rate(principal("ann"), "missing", 3)
	assert.ErrorIs(t, err, services.ErrBookNotFound)

	_, err = service.Rate(principal("ann"), book.ID, 6)
	assert.ErrorIs(t, err, services.ErrInvalidArgument)

	_, err = service.Rate(principal("ann"), book.ID, -0.5)
	assert.ErrorIs(t, err, services.ErrInvalidArgument)

	rated, err := service.Rate(principal("ann"), book.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rated.Rating)
	assert.Equal(t, int64(1), rated.RatingCount)
}

func TestBookService_DeleteCascadesRatings(t *testing.T) {
	repo := repositories.NewMemoryBookRepository()
	service := services.NewBookService(repo, readers("ann"), quietLogger())
	book, err := service.Create(services.BookInput{Title: "Dune", Author: "Frank Herbert", Year: 1965})
	require.NoError(t, err)
	_, err = service.Rate(principal("ann"), book.ID, 5)
	require.NoError(t, err)

	require.NoError(t, service.Delete(book.ID))

	ratings, err := repo.ListRatings(book.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)
}

func TestAggregateRatings(t *testing.T) {
	cases := []struct {
		name    string
		ratings []models.BookRating
		avg     float64
		count   int64
	}{
		{"empty", nil, 0, 0},
		{"single", []models.BookRating{{UserID: "a", Rating: 2.5}}, 2.5, 1},
		{"three raters", []models.BookRating{{UserID: "a", Rating: 3}, {UserID: "b", Rating: 4}, {UserID: "c", Rating: 5}}, 4, 3},
		{"repeated rater counted once", []models.BookRating{{UserID: "a", Rating: 1}, {UserID: "a", Rating: 3}}, 2, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			avg, count := services.AggregateRatings(tc.ratings)
			assert.Equal(t, tc.avg, avg)
			assert.Equal(t, tc.count, count)
		})
	}
}

// rateConcurrently has n distinct users rate one book at the same time with
// values cycling through 1..5, then checks no rating was lost.
func rateConcurrently(t *testing.T, repo repositories.BookRepository, n int) {
	t.Helper()
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("reader%02d", i)
	}
	service := services.NewBookService(repo, readers(names...), quietLogger())

	book, err := service.Create(services.BookInput{Title: "Dune", Author: "Frank Herbert", Year: 1965})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	var sum float64
	for i, name := range names {
		value := float64(i%5 + 1)
		sum += value
		wg.Add(1)
		go func(name string, value float64) {
			defer wg.Done()
			if _, err := service.Rate(principal(name), book.ID, value); err != nil {
				errs <- err
			}
		}(name, value)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := service.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.RatingCount)
	assert.Equal(t, sum/float64(n), got.Rating)

	ratings, err := repo.ListRatings(book.ID)
	require.NoError(t, err)
	assert.Len(t, ratings, n)
}

func TestBookService_Rate_ConcurrentRaters_Memory(t *testing.T) {
	rateConcurrently(t, repositories.NewMemoryBookRepository(), 20)
}

func TestBookService_Rate_ConcurrentRaters_GORM(t *testing.T) {
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	rateConcurrently(t, repositories.NewGORMBookRepository(db), 20)
}
