package store

import (
	"context"

	"hitunghpp/backend/internal/domain"
)

// Repository is the persistence boundary. Every method is scoped by an
// explicit businessID; rows of other businesses behave as missing.
type Repository interface {
	// WithinTx runs fn against a repository bound to one transaction.
	// Returning an error rolls back everything fn wrote. Calls on a
	// repository that is already inside a transaction join it.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error

	GetBusiness(ctx context.Context, businessID string) (*domain.Business, error)
	CreateBusiness(ctx context.Context, business domain.Business) (*domain.Business, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context, businessID string) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error

	ListUnits(ctx context.Context, businessID string) ([]domain.Unit, error)
	GetUnit(ctx context.Context, businessID string, unitID string) (*domain.Unit, error)
	FindUnitBySymbol(ctx context.Context, businessID string, symbol string) (*domain.Unit, error)
	CreateUnit(ctx context.Context, unit domain.Unit) (*domain.Unit, error)

	ListCategories(ctx context.Context, businessID string, kind string) ([]domain.Category, error)
	GetCategory(ctx context.Context, businessID string, categoryID string) (*domain.Category, error)
	FindCategoryByName(ctx context.Context, businessID string, kind string, name string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)

	ListIngredients(ctx context.Context, businessID string, filter domain.IngredientFilter) ([]domain.Ingredient, error)
	GetIngredient(ctx context.Context, businessID string, ingredientID string) (*domain.Ingredient, error)
	GetIngredientsByIDs(ctx context.Context, businessID string, ids []string) (map[string]domain.Ingredient, error)
	CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	DeleteIngredient(ctx context.Context, businessID string, ingredientID string) error
	// ListRecipeIDsUsingIngredient returns recipes with a line on the ingredient.
	ListRecipeIDsUsingIngredient(ctx context.Context, businessID string, ingredientID string) ([]string, error)
	CreateIngredientPriceHistory(ctx context.Context, entry domain.IngredientPriceHistory) error
	ListIngredientPriceHistory(ctx context.Context, businessID string, ingredientID string, limit int) ([]domain.IngredientPriceHistory, error)

	ListRecipes(ctx context.Context, businessID string, filter domain.RecipeFilter) ([]domain.Recipe, error)
	GetRecipe(ctx context.Context, businessID string, recipeID string) (*domain.Recipe, error)
	GetRecipesByIDs(ctx context.Context, businessID string, ids []string) (map[string]domain.Recipe, error)
	// CreateRecipe and UpdateRecipe persist the recipe with its full line
	// sets; an update replaces all previous lines.
	CreateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error)
	DeleteRecipe(ctx context.Context, businessID string, recipeID string) error
	// ListParentRecipeIDs returns recipes that use recipeID as a sub-recipe.
	ListParentRecipeIDs(ctx context.Context, businessID string, recipeID string) ([]string, error)
	// ListSubRecipeEdges returns every recipe's sub-recipe ids for the business.
	ListSubRecipeEdges(ctx context.Context, businessID string) (map[string][]string, error)
	CreateRecipePriceHistory(ctx context.Context, entry domain.RecipePriceHistory) error
	ListRecipePriceHistory(ctx context.Context, businessID string, recipeID string, limit int) ([]domain.RecipePriceHistory, error)

	ListSalesChannels(ctx context.Context, businessID string) ([]domain.SalesChannel, error)
	GetSalesChannel(ctx context.Context, businessID string, channelID string) (*domain.SalesChannel, error)
	CreateSalesChannel(ctx context.Context, channel domain.SalesChannel) (*domain.SalesChannel, error)
	UpdateSalesChannel(ctx context.Context, channel domain.SalesChannel) (*domain.SalesChannel, error)
	DeleteSalesChannel(ctx context.Context, businessID string, channelID string) error

	GetChannelPrice(ctx context.Context, businessID string, recipeID string, channelID string) (*domain.ChannelPrice, error)
	// ListChannelPrices filters by recipe and/or channel; empty means any.
	ListChannelPrices(ctx context.Context, businessID string, recipeID string, channelID string) ([]domain.ChannelPrice, error)
	CreateChannelPrice(ctx context.Context, price domain.ChannelPrice) (*domain.ChannelPrice, error)
	UpdateChannelPrice(ctx context.Context, price domain.ChannelPrice) (*domain.ChannelPrice, error)
	CreateChannelPriceHistory(ctx context.Context, entry domain.ChannelPriceHistory) error
	ListChannelPriceHistory(ctx context.Context, businessID string, recipeID string, channelID string, limit int) ([]domain.ChannelPriceHistory, error)

	// GetSkuSettings returns stored settings or the defaults.
	GetSkuSettings(ctx context.Context, businessID string) (*domain.SkuSettings, error)
	UpsertSkuSettings(ctx context.Context, settings domain.SkuSettings) (*domain.SkuSettings, error)
	// NextSkuNumber atomically returns the current counter for kind and
	// advances it by one.
	NextSkuNumber(ctx context.Context, businessID string, kind string) (int64, error)

	GetDecimalSettings(ctx context.Context, businessID string) (*domain.DecimalSettings, error)
	UpsertDecimalSettings(ctx context.Context, settings domain.DecimalSettings) (*domain.DecimalSettings, error)

	CreateActivityLog(ctx context.Context, entry domain.ActivityLog) error
	ListActivityLogs(ctx context.Context, businessID string, limit int) ([]domain.ActivityLog, error)
}
