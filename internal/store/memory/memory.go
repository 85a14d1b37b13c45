package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/store"
)

const defaultLimit = 100

type state struct {
	businesses        map[string]domain.Business
	usersByUsername   map[string]domain.UserAccount
	units             map[string]domain.Unit
	categories        map[string]domain.Category
	ingredients       map[string]domain.Ingredient
	ingredientHistory []domain.IngredientPriceHistory
	recipes           map[string]domain.Recipe
	recipeHistory     []domain.RecipePriceHistory
	channels          map[string]domain.SalesChannel
	channelPrices     map[string]domain.ChannelPrice
	channelHistory    []domain.ChannelPriceHistory
	skuSettings       map[string]domain.SkuSettings
	decimalSettings   map[string]domain.DecimalSettings
	activityLogs      []domain.ActivityLog
}

func newState() *state {
	return &state{
		businesses:        make(map[string]domain.Business),
		usersByUsername:   make(map[string]domain.UserAccount),
		units:             make(map[string]domain.Unit),
		categories:        make(map[string]domain.Category),
		ingredients:       make(map[string]domain.Ingredient),
		ingredientHistory: make([]domain.IngredientPriceHistory, 0, 64),
		recipes:           make(map[string]domain.Recipe),
		recipeHistory:     make([]domain.RecipePriceHistory, 0, 64),
		channels:          make(map[string]domain.SalesChannel),
		channelPrices:     make(map[string]domain.ChannelPrice),
		channelHistory:    make([]domain.ChannelPriceHistory, 0, 64),
		skuSettings:       make(map[string]domain.SkuSettings),
		decimalSettings:   make(map[string]domain.DecimalSettings),
		activityLogs:      make([]domain.ActivityLog, 0, 128),
	}
}

func (st *state) clone() *state {
	out := &state{
		businesses:        maps.Clone(st.businesses),
		usersByUsername:   maps.Clone(st.usersByUsername),
		units:             maps.Clone(st.units),
		categories:        maps.Clone(st.categories),
		ingredients:       maps.Clone(st.ingredients),
		ingredientHistory: slices.Clone(st.ingredientHistory),
		recipes:           make(map[string]domain.Recipe, len(st.recipes)),
		recipeHistory:     slices.Clone(st.recipeHistory),
		channels:          maps.Clone(st.channels),
		channelPrices:     maps.Clone(st.channelPrices),
		channelHistory:    slices.Clone(st.channelHistory),
		skuSettings:       maps.Clone(st.skuSettings),
		decimalSettings:   maps.Clone(st.decimalSettings),
		activityLogs:      slices.Clone(st.activityLogs),
	}
	for id, r := range st.recipes {
		out.recipes[id] = cloneRecipe(r)
	}
	return out
}

func cloneRecipe(r domain.Recipe) domain.Recipe {
	r.Ingredients = append(make([]domain.RecipeIngredient, 0, len(r.Ingredients)), r.Ingredients...)
	r.SubRecipes = append(make([]domain.RecipeSubRecipe, 0, len(r.SubRecipes)), r.SubRecipes...)
	return r
}

// Store keeps everything in maps guarded by one RWMutex. A transaction
// holds the write lock for its whole duration and restores a snapshot
// when fn fails.
type Store struct {
	mu   *sync.RWMutex
	data *state
	inTx bool
}

func New() *Store {
	return &Store{mu: &sync.RWMutex{}, data: newState()}
}

func (s *Store) read() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func notFound(kind string, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (s *Store) GetBusiness(_ context.Context, businessID string) (*domain.Business, error) {
	defer s.read()()

	b, ok := s.data.businesses[businessID]
	if !ok {
		return nil, notFound("business", businessID)
	}
	return &b, nil
}

func (s *Store) CreateBusiness(_ context.Context, business domain.Business) (*domain.Business, error) {
	defer s.write()()

	if _, exists := s.data.businesses[business.ID]; exists {
		return nil, fmt.Errorf("%w: business %s already exists", domain.ErrConflict, business.ID)
	}
	s.data.businesses[business.ID] = business
	return &business, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	defer s.write()()

	if _, exists := s.data.usersByUsername[user.Username]; exists {
		return fmt.Errorf("%w: username already exists", domain.ErrConflict)
	}
	s.data.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	defer s.read()()

	u, ok := s.data.usersByUsername[username]
	if !ok {
		return nil, notFound("user", username)
	}
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context, businessID string) ([]domain.UserAccount, error) {
	defer s.read()()

	users := make([]domain.UserAccount, 0)
	for _, u := range s.data.usersByUsername {
		if u.BusinessID == businessID {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int { return cmp.Compare(a.Username, b.Username) })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	defer s.write()()

	u, ok := s.data.usersByUsername[username]
	if !ok {
		return notFound("user", username)
	}
	u.Password = password
	s.data.usersByUsername[username] = u
	return nil
}

func (s *Store) ListUnits(_ context.Context, businessID string) ([]domain.Unit, error) {
	defer s.read()()

	units := make([]domain.Unit, 0)
	for _, u := range s.data.units {
		if u.BusinessID == businessID {
			units = append(units, u)
		}
	}
	slices.SortFunc(units, func(a, b domain.Unit) int { return cmp.Compare(a.Name, b.Name) })
	return units, nil
}

func (s *Store) GetUnit(_ context.Context, businessID string, unitID string) (*domain.Unit, error) {
	defer s.read()()

	u, ok := s.data.units[unitID]
	if !ok || u.BusinessID != businessID {
		return nil, notFound("unit", unitID)
	}
	return &u, nil
}

func (s *Store) FindUnitBySymbol(_ context.Context, businessID string, symbol string) (*domain.Unit, error) {
	defer s.read()()

	for _, u := range s.data.units {
		if u.BusinessID == businessID && strings.EqualFold(u.Symbol, symbol) {
			return &u, nil
		}
	}
	return nil, notFound("unit", symbol)
}

func (s *Store) CreateUnit(_ context.Context, unit domain.Unit) (*domain.Unit, error) {
	defer s.write()()

	for _, u := range s.data.units {
		if u.BusinessID == unit.BusinessID && strings.EqualFold(u.Symbol, unit.Symbol) {
			return nil, fmt.Errorf("%w: unit symbol %s already exists", domain.ErrConflict, unit.Symbol)
		}
	}
	s.data.units[unit.ID] = unit
	return &unit, nil
}

func (s *Store) ListCategories(_ context.Context, businessID string, kind string) ([]domain.Category, error) {
	defer s.read()()

	categories := make([]domain.Category, 0)
	for _, c := range s.data.categories {
		if c.BusinessID != businessID || (kind != "" && c.Kind != kind) {
			continue
		}
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		if a.Kind == b.Kind {
			return cmp.Compare(a.Name, b.Name)
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	return categories, nil
}

func (s *Store) GetCategory(_ context.Context, businessID string, categoryID string) (*domain.Category, error) {
	defer s.read()()

	c, ok := s.data.categories[categoryID]
	if !ok || c.BusinessID != businessID {
		return nil, notFound("category", categoryID)
	}
	return &c, nil
}

func (s *Store) FindCategoryByName(_ context.Context, businessID string, kind string, name string) (*domain.Category, error) {
	defer s.read()()

	for _, c := range s.data.categories {
		if c.BusinessID == businessID && c.Kind == kind && strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}
	return nil, notFound("category", name)
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	defer s.write()()

	for _, c := range s.data.categories {
		if c.BusinessID == category.BusinessID && c.Kind == category.Kind && strings.EqualFold(c.Name, category.Name) {
			return nil, fmt.Errorf("%w: category %s already exists", domain.ErrConflict, category.Name)
		}
	}
	s.data.categories[category.ID] = category
	return &category, nil
}

func (s *Store) ListIngredients(_ context.Context, businessID string, filter domain.IngredientFilter) ([]domain.Ingredient, error) {
	defer s.read()()

	out := make([]domain.Ingredient, 0)
	for _, ing := range s.data.ingredients {
		if ing.BusinessID != businessID {
			continue
		}
		if filter.CategoryID != "" && ing.CategoryID != filter.CategoryID {
			continue
		}
		if !matches(filter.Search, ing.Name, ing.SKU) {
			continue
		}
		out = append(out, ing)
	}
	slices.SortFunc(out, func(a, b domain.Ingredient) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) })
	return out, nil
}

func (s *Store) GetIngredient(_ context.Context, businessID string, ingredientID string) (*domain.Ingredient, error) {
	defer s.read()()

	ing, ok := s.data.ingredients[ingredientID]
	if !ok || ing.BusinessID != businessID {
		return nil, notFound("ingredient", ingredientID)
	}
	return &ing, nil
}

func (s *Store) GetIngredientsByIDs(_ context.Context, businessID string, ids []string) (map[string]domain.Ingredient, error) {
	defer s.read()()

	out := make(map[string]domain.Ingredient, len(ids))
	for _, id := range ids {
		if ing, ok := s.data.ingredients[id]; ok && ing.BusinessID == businessID {
			out[id] = ing
		}
	}
	return out, nil
}

func (s *Store) skuTaken(businessID string, sku string, exceptID string) bool {
	if sku == "" {
		return false
	}
	for id, ing := range s.data.ingredients {
		if id != exceptID && ing.BusinessID == businessID && strings.EqualFold(ing.SKU, sku) {
			return true
		}
	}
	for id, r := range s.data.recipes {
		if id != exceptID && r.BusinessID == businessID && strings.EqualFold(r.SKU, sku) {
			return true
		}
	}
	return false
}

func (s *Store) CreateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	defer s.write()()

	if _, exists := s.data.ingredients[ingredient.ID]; exists {
		return nil, fmt.Errorf("%w: ingredient %s already exists", domain.ErrConflict, ingredient.ID)
	}
	if s.skuTaken(ingredient.BusinessID, ingredient.SKU, ingredient.ID) {
		return nil, fmt.Errorf("%w: sku %s already used", domain.ErrConflict, ingredient.SKU)
	}
	s.data.ingredients[ingredient.ID] = ingredient
	return &ingredient, nil
}

func (s *Store) UpdateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	defer s.write()()

	existing, ok := s.data.ingredients[ingredient.ID]
	if !ok || existing.BusinessID != ingredient.BusinessID {
		return nil, notFound("ingredient", ingredient.ID)
	}
	if s.skuTaken(ingredient.BusinessID, ingredient.SKU, ingredient.ID) {
		return nil, fmt.Errorf("%w: sku %s already used", domain.ErrConflict, ingredient.SKU)
	}
	ingredient.CreatedAt = existing.CreatedAt
	s.data.ingredients[ingredient.ID] = ingredient
	return &ingredient, nil
}

func (s *Store) DeleteIngredient(_ context.Context, businessID string, ingredientID string) error {
	defer s.write()()

	ing, ok := s.data.ingredients[ingredientID]
	if !ok || ing.BusinessID != businessID {
		return notFound("ingredient", ingredientID)
	}
	if len(s.recipesUsingIngredient(businessID, ingredientID)) > 0 {
		return fmt.Errorf("%w: ingredient %s is used by recipes", domain.ErrConflict, ingredientID)
	}
	delete(s.data.ingredients, ingredientID)
	return nil
}

func (s *Store) recipesUsingIngredient(businessID string, ingredientID string) []string {
	ids := make([]string, 0)
	for _, r := range s.data.recipes {
		if r.BusinessID != businessID {
			continue
		}
		for _, line := range r.Ingredients {
			if line.IngredientID == ingredientID {
				ids = append(ids, r.ID)
				break
			}
		}
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) ListRecipeIDsUsingIngredient(_ context.Context, businessID string, ingredientID string) ([]string, error) {
	defer s.read()()
	return s.recipesUsingIngredient(businessID, ingredientID), nil
}

func (s *Store) CreateIngredientPriceHistory(_ context.Context, entry domain.IngredientPriceHistory) error {
	defer s.write()()

	s.data.ingredientHistory = append(s.data.ingredientHistory, entry)
	return nil
}

func (s *Store) ListIngredientPriceHistory(_ context.Context, businessID string, ingredientID string, limit int) ([]domain.IngredientPriceHistory, error) {
	defer s.read()()

	limit = clampLimit(limit)
	out := make([]domain.IngredientPriceHistory, 0, limit)
	for i := len(s.data.ingredientHistory) - 1; i >= 0 && len(out) < limit; i-- {
		h := s.data.ingredientHistory[i]
		if h.BusinessID == businessID && h.IngredientID == ingredientID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Store) ListRecipes(_ context.Context, businessID string, filter domain.RecipeFilter) ([]domain.Recipe, error) {
	defer s.read()()

	out := make([]domain.Recipe, 0)
	for _, r := range s.data.recipes {
		if r.BusinessID != businessID {
			continue
		}
		if filter.CategoryID != "" && r.CategoryID != filter.CategoryID {
			continue
		}
		if filter.FavoritesOnly && !r.IsFavorite {
			continue
		}
		if filter.UsableAsIngredient && !r.CanBeUsedAsIngredient {
			continue
		}
		if !matches(filter.Search, r.Name, r.SKU) {
			continue
		}
		out = append(out, cloneRecipe(r))
	}
	slices.SortFunc(out, func(a, b domain.Recipe) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) })
	return out, nil
}

func (s *Store) GetRecipe(_ context.Context, businessID string, recipeID string) (*domain.Recipe, error) {
	defer s.read()()

	r, ok := s.data.recipes[recipeID]
	if !ok || r.BusinessID != businessID {
		return nil, notFound("recipe", recipeID)
	}
	r = cloneRecipe(r)
	return &r, nil
}

func (s *Store) GetRecipesByIDs(_ context.Context, businessID string, ids []string) (map[string]domain.Recipe, error) {
	defer s.read()()

	out := make(map[string]domain.Recipe, len(ids))
	for _, id := range ids {
		if r, ok := s.data.recipes[id]; ok && r.BusinessID == businessID {
			out[id] = cloneRecipe(r)
		}
	}
	return out, nil
}

func (s *Store) checkRecipeRefs(recipe domain.Recipe) error {
	for _, line := range recipe.Ingredients {
		ing, ok := s.data.ingredients[line.IngredientID]
		if !ok || ing.BusinessID != recipe.BusinessID {
			return notFound("ingredient", line.IngredientID)
		}
	}
	for _, line := range recipe.SubRecipes {
		sub, ok := s.data.recipes[line.SubRecipeID]
		if !ok || sub.BusinessID != recipe.BusinessID {
			return notFound("recipe", line.SubRecipeID)
		}
	}
	return nil
}

func (s *Store) CreateRecipe(_ context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	defer s.write()()

	if _, exists := s.data.recipes[recipe.ID]; exists {
		return nil, fmt.Errorf("%w: recipe %s already exists", domain.ErrConflict, recipe.ID)
	}
	if s.skuTaken(recipe.BusinessID, recipe.SKU, recipe.ID) {
		return nil, fmt.Errorf("%w: sku %s already used", domain.ErrConflict, recipe.SKU)
	}
	if err := s.checkRecipeRefs(recipe); err != nil {
		return nil, err
	}
	recipe = cloneRecipe(recipe)
	s.data.recipes[recipe.ID] = recipe
	out := cloneRecipe(recipe)
	return &out, nil
}

func (s *Store) UpdateRecipe(_ context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	defer s.write()()

	existing, ok := s.data.recipes[recipe.ID]
	if !ok || existing.BusinessID != recipe.BusinessID {
		return nil, notFound("recipe", recipe.ID)
	}
	if s.skuTaken(recipe.BusinessID, recipe.SKU, recipe.ID) {
		return nil, fmt.Errorf("%w: sku %s already used", domain.ErrConflict, recipe.SKU)
	}
	if err := s.checkRecipeRefs(recipe); err != nil {
		return nil, err
	}
	recipe = cloneRecipe(recipe)
	recipe.CreatedAt = existing.CreatedAt
	s.data.recipes[recipe.ID] = recipe
	out := cloneRecipe(recipe)
	return &out, nil
}

func (s *Store) DeleteRecipe(_ context.Context, businessID string, recipeID string) error {
	defer s.write()()

	r, ok := s.data.recipes[recipeID]
	if !ok || r.BusinessID != businessID {
		return notFound("recipe", recipeID)
	}
	if len(s.parentsOf(businessID, recipeID)) > 0 {
		return fmt.Errorf("%w: recipe %s is used as a sub-recipe", domain.ErrConflict, recipeID)
	}
	delete(s.data.recipes, recipeID)
	for id, cp := range s.data.channelPrices {
		if cp.RecipeID == recipeID {
			delete(s.data.channelPrices, id)
		}
	}
	return nil
}

func (s *Store) parentsOf(businessID string, recipeID string) []string {
	ids := make([]string, 0)
	for _, r := range s.data.recipes {
		if r.BusinessID != businessID {
			continue
		}
		for _, line := range r.SubRecipes {
			if line.SubRecipeID == recipeID {
				ids = append(ids, r.ID)
				break
			}
		}
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) ListParentRecipeIDs(_ context.Context, businessID string, recipeID string) ([]string, error) {
	defer s.read()()
	return s.parentsOf(businessID, recipeID), nil
}

func (s *Store) ListSubRecipeEdges(_ context.Context, businessID string) (map[string][]string, error) {
	defer s.read()()

	edges := make(map[string][]string)
	for _, r := range s.data.recipes {
		if r.BusinessID != businessID || len(r.SubRecipes) == 0 {
			continue
		}
		children := make([]string, 0, len(r.SubRecipes))
		for _, line := range r.SubRecipes {
			children = append(children, line.SubRecipeID)
		}
		edges[r.ID] = children
	}
	return edges, nil
}

func (s *Store) CreateRecipePriceHistory(_ context.Context, entry domain.RecipePriceHistory) error {
	defer s.write()()

	s.data.recipeHistory = append(s.data.recipeHistory, entry)
	return nil
}

func (s *Store) ListRecipePriceHistory(_ context.Context, businessID string, recipeID string, limit int) ([]domain.RecipePriceHistory, error) {
	defer s.read()()

	limit = clampLimit(limit)
	out := make([]domain.RecipePriceHistory, 0, limit)
	for i := len(s.data.recipeHistory) - 1; i >= 0 && len(out) < limit; i-- {
		h := s.data.recipeHistory[i]
		if h.BusinessID == businessID && h.RecipeID == recipeID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Store) ListSalesChannels(_ context.Context, businessID string) ([]domain.SalesChannel, error) {
	defer s.read()()

	out := make([]domain.SalesChannel, 0)
	for _, c := range s.data.channels {
		if c.BusinessID == businessID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.SalesChannel) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) GetSalesChannel(_ context.Context, businessID string, channelID string) (*domain.SalesChannel, error) {
	defer s.read()()

	c, ok := s.data.channels[channelID]
	if !ok || c.BusinessID != businessID {
		return nil, notFound("sales channel", channelID)
	}
	return &c, nil
}

func (s *Store) channelNameTaken(channel domain.SalesChannel) bool {
	for id, c := range s.data.channels {
		if id != channel.ID && c.BusinessID == channel.BusinessID && strings.EqualFold(c.Name, channel.Name) {
			return true
		}
	}
	return false
}

func (s *Store) CreateSalesChannel(_ context.Context, channel domain.SalesChannel) (*domain.SalesChannel, error) {
	defer s.write()()

	if s.channelNameTaken(channel) {
		return nil, fmt.Errorf("%w: sales channel %s already exists", domain.ErrConflict, channel.Name)
	}
	s.data.channels[channel.ID] = channel
	return &channel, nil
}

func (s *Store) UpdateSalesChannel(_ context.Context, channel domain.SalesChannel) (*domain.SalesChannel, error) {
	defer s.write()()

	existing, ok := s.data.channels[channel.ID]
	if !ok || existing.BusinessID != channel.BusinessID {
		return nil, notFound("sales channel", channel.ID)
	}
	if s.channelNameTaken(channel) {
		return nil, fmt.Errorf("%w: sales channel %s already exists", domain.ErrConflict, channel.Name)
	}
	channel.CreatedAt = existing.CreatedAt
	s.data.channels[channel.ID] = channel
	return &channel, nil
}

func (s *Store) DeleteSalesChannel(_ context.Context, businessID string, channelID string) error {
	defer s.write()()

	c, ok := s.data.channels[channelID]
	if !ok || c.BusinessID != businessID {
		return notFound("sales channel", channelID)
	}
	for _, cp := range s.data.channelPrices {
		if cp.ChannelID == channelID {
			return fmt.Errorf("%w: sales channel %s has prices", domain.ErrConflict, channelID)
		}
	}
	delete(s.data.channels, channelID)
	return nil
}

func (s *Store) GetChannelPrice(_ context.Context, businessID string, recipeID string, channelID string) (*domain.ChannelPrice, error) {
	defer s.read()()

	for _, cp := range s.data.channelPrices {
		if cp.BusinessID == businessID && cp.RecipeID == recipeID && cp.ChannelID == channelID {
			return &cp, nil
		}
	}
	return nil, notFound("channel price", recipeID+"/"+channelID)
}

func (s *Store) ListChannelPrices(_ context.Context, businessID string, recipeID string, channelID string) ([]domain.ChannelPrice, error) {
	defer s.read()()

	out := make([]domain.ChannelPrice, 0)
	for _, cp := range s.data.channelPrices {
		if cp.BusinessID != businessID {
			continue
		}
		if (recipeID != "" && cp.RecipeID != recipeID) || (channelID != "" && cp.ChannelID != channelID) {
			continue
		}
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b domain.ChannelPrice) int {
		if a.RecipeID == b.RecipeID {
			return cmp.Compare(a.ChannelID, b.ChannelID)
		}
		return cmp.Compare(a.RecipeID, b.RecipeID)
	})
	return out, nil
}

func (s *Store) CreateChannelPrice(_ context.Context, price domain.ChannelPrice) (*domain.ChannelPrice, error) {
	defer s.write()()

	for _, cp := range s.data.channelPrices {
		if cp.BusinessID == price.BusinessID && cp.RecipeID == price.RecipeID && cp.ChannelID == price.ChannelID {
			return nil, fmt.Errorf("%w: channel price for recipe %s on channel %s already exists", domain.ErrConflict, price.RecipeID, price.ChannelID)
		}
	}
	if r, ok := s.data.recipes[price.RecipeID]; !ok || r.BusinessID != price.BusinessID {
		return nil, notFound("recipe", price.RecipeID)
	}
	if c, ok := s.data.channels[price.ChannelID]; !ok || c.BusinessID != price.BusinessID {
		return nil, notFound("sales channel", price.ChannelID)
	}
	s.data.channelPrices[price.ID] = price
	return &price, nil
}

func (s *Store) UpdateChannelPrice(_ context.Context, price domain.ChannelPrice) (*domain.ChannelPrice, error) {
	defer s.write()()

	existing, ok := s.data.channelPrices[price.ID]
	if !ok || existing.BusinessID != price.BusinessID {
		return nil, notFound("channel price", price.ID)
	}
	price.RecipeID = existing.RecipeID
	price.ChannelID = existing.ChannelID
	s.data.channelPrices[price.ID] = price
	return &price, nil
}

func (s *Store) CreateChannelPriceHistory(_ context.Context, entry domain.ChannelPriceHistory) error {
	defer s.write()()

	s.data.channelHistory = append(s.data.channelHistory, entry)
	return nil
}

func (s *Store) ListChannelPriceHistory(_ context.Context, businessID string, recipeID string, channelID string, limit int) ([]domain.ChannelPriceHistory, error) {
	defer s.read()()

	limit = clampLimit(limit)
	out := make([]domain.ChannelPriceHistory, 0, limit)
	for i := len(s.data.channelHistory) - 1; i >= 0 && len(out) < limit; i-- {
		h := s.data.channelHistory[i]
		if h.BusinessID != businessID {
			continue
		}
		if (recipeID != "" && h.RecipeID != recipeID) || (channelID != "" && h.ChannelID != channelID) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *Store) skuSettingsFor(businessID string) domain.SkuSettings {
	if settings, ok := s.data.skuSettings[businessID]; ok {
		return settings
	}
	return domain.DefaultSkuSettings(businessID)
}

func (s *Store) GetSkuSettings(_ context.Context, businessID string) (*domain.SkuSettings, error) {
	defer s.read()()

	settings := s.skuSettingsFor(businessID)
	return &settings, nil
}

func (s *Store) UpsertSkuSettings(_ context.Context, settings domain.SkuSettings) (*domain.SkuSettings, error) {
	defer s.write()()

	s.data.skuSettings[settings.BusinessID] = settings
	return &settings, nil
}

func (s *Store) NextSkuNumber(_ context.Context, businessID string, kind string) (int64, error) {
	defer s.write()()

	settings := s.skuSettingsFor(businessID)
	var next int64
	switch kind {
	case domain.SkuIngredient:
		next = settings.NextIngredientNumber
		settings.NextIngredientNumber++
	case domain.SkuRecipe:
		next = settings.NextRecipeNumber
		settings.NextRecipeNumber++
	default:
		return 0, fmt.Errorf("%w: unknown sku kind %q", domain.ErrValidation, kind)
	}
	s.data.skuSettings[businessID] = settings
	return next, nil
}

func (s *Store) GetDecimalSettings(_ context.Context, businessID string) (*domain.DecimalSettings, error) {
	defer s.read()()

	settings, ok := s.data.decimalSettings[businessID]
	if !ok {
		settings = domain.DefaultDecimalSettings(businessID)
	}
	return &settings, nil
}

func (s *Store) UpsertDecimalSettings(_ context.Context, settings domain.DecimalSettings) (*domain.DecimalSettings, error) {
	defer s.write()()

	s.data.decimalSettings[settings.BusinessID] = settings
	return &settings, nil
}

func (s *Store) CreateActivityLog(_ context.Context, entry domain.ActivityLog) error {
	defer s.write()()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.data.activityLogs = append(s.data.activityLogs, entry)
	return nil
}

func (s *Store) ListActivityLogs(_ context.Context, businessID string, limit int) ([]domain.ActivityLog, error) {
	defer s.read()()

	limit = clampLimit(limit)
	out := make([]domain.ActivityLog, 0, limit)
	for i := len(s.data.activityLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if entry := s.data.activityLogs[i]; entry.BusinessID == businessID {
			out = append(out, entry)
		}
	}
	return out, nil
}
