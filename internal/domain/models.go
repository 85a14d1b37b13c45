package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type UserAccount struct {
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	Role       string    `json:"role"`
	BusinessID string    `json:"business_id"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Actor struct {
	Username   string
	Role       string
	BusinessID string
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	BusinessID  string `json:"business_id"`
	ExpiresAt   string `json:"expires_at"`
}

type StaffCreateRequest struct {
	Username string `json:"username" validate:"required,min=4,max=64"`
	Password string `json:"password" validate:"required,min=6"`
}

type Unit struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
}

type UnitCreateRequest struct {
	Name   string `json:"name" validate:"required,max=64"`
	Symbol string `json:"symbol" validate:"required,max=16"`
}

const (
	CategoryKindIngredient = "ingredient"
	CategoryKindRecipe     = "recipe"
)

type Category struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
}

type CategoryCreateRequest struct {
	Kind string `json:"kind" validate:"required,oneof=ingredient recipe"`
	Name string `json:"name" validate:"required,max=100"`
}

type Ingredient struct {
	ID               string          `json:"id"`
	BusinessID       string          `json:"business_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	SKU              string          `json:"sku,omitempty"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	PackageSize      decimal.Decimal `json:"package_size"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
	PurchaseUnitID   string          `json:"purchase_unit_id"`
	UsageUnitID      string          `json:"usage_unit_id"`
	CategoryID       string          `json:"category_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type IngredientCreateRequest struct {
	Name             string          `json:"name" validate:"required,max=150"`
	Description      string          `json:"description"`
	SKU              string          `json:"sku"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	PackageSize      decimal.Decimal `json:"package_size"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	PurchaseUnitID   string          `json:"purchase_unit_id"`
	UsageUnitID      string          `json:"usage_unit_id"`
	CategoryID       string          `json:"category_id"`
}

type IngredientUpdateRequest struct {
	Name             *string          `json:"name,omitempty"`
	Description      *string          `json:"description,omitempty"`
	SKU              *string          `json:"sku,omitempty"`
	PurchasePrice    *decimal.Decimal `json:"purchase_price,omitempty"`
	PackageSize      *decimal.Decimal `json:"package_size,omitempty"`
	ConversionFactor *decimal.Decimal `json:"conversion_factor,omitempty"`
	PurchaseUnitID   *string          `json:"purchase_unit_id,omitempty"`
	UsageUnitID      *string          `json:"usage_unit_id,omitempty"`
	CategoryID       *string          `json:"category_id,omitempty"`
}

type IngredientFilter struct {
	CategoryID string
	Search     string
}

// IngredientImportRow is one parsed line of the ingredient CSV. Numeric
// columns stay as text so conversion failures are reported per row.
type IngredientImportRow struct {
	Line               int
	Name               string
	Description        string
	CategoryName       string
	PurchasePrice      string
	PackageSize        string
	PurchaseUnitName   string
	PurchaseUnitSymbol string
	UsageUnitName      string
	UsageUnitSymbol    string
	ConversionFactor   string
}

type ChangeType string

const (
	ChangeIncrease ChangeType = "increase"
	ChangeDecrease ChangeType = "decrease"
	ChangeNone     ChangeType = "no_change"
)

// PriceChangeEvent is shared by every price history record.
type PriceChangeEvent struct {
	OldPrice         decimal.Decimal `json:"old_price"`
	NewPrice         decimal.Decimal `json:"new_price"`
	PriceChange      decimal.Decimal `json:"price_change"`
	PercentageChange decimal.Decimal `json:"percentage_change"`
	ChangeType       ChangeType      `json:"change_type"`
	ChangeDate       time.Time       `json:"change_date"`
}

type IngredientPriceHistory struct {
	ID           string `json:"id"`
	BusinessID   string `json:"business_id"`
	IngredientID string `json:"ingredient_id"`
	PriceChangeEvent
}

type RecipeIngredient struct {
	IngredientID string          `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitID       string          `json:"unit_id,omitempty"`
	Cost         decimal.Decimal `json:"cost"`
}

type RecipeSubRecipe struct {
	SubRecipeID string          `json:"sub_recipe_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Cost        decimal.Decimal `json:"cost"`
}

type Recipe struct {
	ID                    string             `json:"id"`
	BusinessID            string             `json:"business_id"`
	Name                  string             `json:"name"`
	Description           string             `json:"description"`
	SKU                   string             `json:"sku,omitempty"`
	Yield                 decimal.Decimal    `json:"yield"`
	Ingredients           []RecipeIngredient `json:"ingredients"`
	SubRecipes            []RecipeSubRecipe  `json:"sub_recipes"`
	LaborCost             decimal.Decimal    `json:"labor_cost"`
	OperationalCost       decimal.Decimal    `json:"operational_cost"`
	PackagingCost         decimal.Decimal    `json:"packaging_cost"`
	TotalCOGS             decimal.Decimal    `json:"total_cogs"`
	CogsPerServing        decimal.Decimal    `json:"cogs_per_serving"`
	CanBeUsedAsIngredient bool               `json:"can_be_used_as_ingredient"`
	CostPerUnit           decimal.Decimal    `json:"cost_per_unit"`
	SellingPrice          decimal.Decimal    `json:"selling_price"`
	ProfitMargin          decimal.Decimal    `json:"profit_margin"`
	IsFavorite            bool               `json:"is_favorite"`
	CategoryID            string             `json:"category_id,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

type RecipeIngredientInput struct {
	IngredientID string          `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitID       string          `json:"unit_id"`
}

type RecipeSubRecipeInput struct {
	SubRecipeID string          `json:"sub_recipe_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

type RecipeCreateRequest struct {
	Name                  string                  `json:"name" validate:"required,max=150"`
	Description           string                  `json:"description"`
	SKU                   string                  `json:"sku"`
	Yield                 decimal.Decimal         `json:"yield"`
	Ingredients           []RecipeIngredientInput `json:"ingredients"`
	SubRecipes            []RecipeSubRecipeInput  `json:"sub_recipes"`
	LaborCost             decimal.Decimal         `json:"labor_cost"`
	OperationalCost       decimal.Decimal         `json:"operational_cost"`
	PackagingCost         decimal.Decimal         `json:"packaging_cost"`
	CanBeUsedAsIngredient bool                    `json:"can_be_used_as_ingredient"`
	SellingPrice          decimal.Decimal         `json:"selling_price"`
	IsFavorite            bool                    `json:"is_favorite"`
	CategoryID            string                  `json:"category_id"`
}

// RecipeUpdateRequest leaves nil fields untouched. A non-nil line list
// replaces the whole existing list.
type RecipeUpdateRequest struct {
	Name                  *string                  `json:"name,omitempty"`
	Description           *string                  `json:"description,omitempty"`
	SKU                   *string                  `json:"sku,omitempty"`
	Yield                 *decimal.Decimal         `json:"yield,omitempty"`
	Ingredients           *[]RecipeIngredientInput `json:"ingredients,omitempty"`
	SubRecipes            *[]RecipeSubRecipeInput  `json:"sub_recipes,omitempty"`
	LaborCost             *decimal.Decimal         `json:"labor_cost,omitempty"`
	OperationalCost       *decimal.Decimal         `json:"operational_cost,omitempty"`
	PackagingCost         *decimal.Decimal         `json:"packaging_cost,omitempty"`
	CanBeUsedAsIngredient *bool                    `json:"can_be_used_as_ingredient,omitempty"`
	CategoryID            *string                  `json:"category_id,omitempty"`
}

type RecipeFilter struct {
	CategoryID         string
	Search             string
	FavoritesOnly      bool
	UsableAsIngredient bool
}

const (
	BreakdownIngredient  = "ingredient"
	BreakdownSubRecipe   = "sub_recipe"
	BreakdownLabor       = "labor"
	BreakdownOperational = "operational"
	BreakdownPackaging   = "packaging"
)

type CostBreakdownLine struct {
	Kind     string          `json:"kind"`
	RefID    string          `json:"ref_id,omitempty"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
	Share    decimal.Decimal `json:"share_percent"`
}

type CostBreakdown struct {
	RecipeID       string              `json:"recipe_id"`
	RecipeName     string              `json:"recipe_name"`
	Yield          decimal.Decimal     `json:"yield"`
	TotalCOGS      decimal.Decimal     `json:"total_cogs"`
	CogsPerServing decimal.Decimal     `json:"cogs_per_serving"`
	Lines          []CostBreakdownLine `json:"lines"`
}

type RecalculateRequest struct {
	IngredientID string `json:"ingredient_id"`
	RecipeID     string `json:"recipe_id"`
}

type RecalculateResult struct {
	Recalculated int      `json:"recalculated"`
	RecipeIDs    []string `json:"recipe_ids"`
}

type RecipePriceHistory struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	RecipeID   string `json:"recipe_id"`
	Reason     string `json:"reason"`
	PriceChangeEvent
}

type SetPriceRequest struct {
	Price  decimal.Decimal `json:"price"`
	Reason string          `json:"reason"`
}

type SetPriceResponse struct {
	Recipe  Recipe             `json:"recipe"`
	History RecipePriceHistory `json:"history"`
}

const (
	AdjustSet             = "set"
	AdjustIncreasePercent = "increase_percent"
	AdjustDecreasePercent = "decrease_percent"
	AdjustIncreaseAmount  = "increase_amount"
	AdjustDecreaseAmount  = "decrease_amount"
)

type BulkPriceRequest struct {
	RecipeIDs []string        `json:"recipe_ids" validate:"required,min=1,dive,required"`
	Mode      string          `json:"mode" validate:"required,oneof=set increase_percent decrease_percent increase_amount decrease_amount"`
	Value     decimal.Decimal `json:"value"`
	Reason    string          `json:"reason"`
}

// RecipePriceImportRow is one parsed line of the price-manager CSV.
type RecipePriceImportRow struct {
	Line     int
	RecipeID string
	NewPrice string
	Reason   string
}

// PriceListEntry is one line of the price-manager export.
type PriceListEntry struct {
	RecipeID       string          `json:"recipe_id"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku"`
	Description    string          `json:"description"`
	CategoryName   string          `json:"category_name"`
	CogsPerServing decimal.Decimal `json:"cogs_per_serving"`
	SellingPrice   decimal.Decimal `json:"selling_price"`
	ProfitMargin   decimal.Decimal `json:"profit_margin"`
}

type RowError struct {
	Row     int    `json:"row,omitempty"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

type BulkResult struct {
	Processed int        `json:"processed"`
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Skipped   int        `json:"skipped"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors"`
}

type SalesChannel struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"business_id"`
	Name       string          `json:"name"`
	Commission decimal.Decimal `json:"commission"`
	Icon       string          `json:"icon,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type SalesChannelRequest struct {
	Name       string          `json:"name" validate:"required,max=100"`
	Commission decimal.Decimal `json:"commission"`
	Icon       string          `json:"icon"`
}

type ChannelPrice struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"business_id"`
	RecipeID   string          `json:"recipe_id"`
	ChannelID  string          `json:"channel_id"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	FinalPrice decimal.Decimal `json:"final_price"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ChannelPriceView struct {
	ChannelPrice
	ChannelName  string          `json:"channel_name"`
	NetPrice     decimal.Decimal `json:"net_price"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

type ChannelPriceHistory struct {
	ID             string `json:"id"`
	BusinessID     string `json:"business_id"`
	ChannelPriceID string `json:"channel_price_id"`
	RecipeID       string `json:"recipe_id"`
	ChannelID      string `json:"channel_id"`
	Reason         string `json:"reason"`
	PriceChangeEvent
}

type ChannelPriceInput struct {
	RecipeID   string           `json:"recipe_id" validate:"required"`
	ChannelID  string           `json:"channel_id" validate:"required"`
	Price      decimal.Decimal  `json:"price"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
	TaxRate    decimal.Decimal  `json:"tax_rate"`
}

type ChannelPriceBatchRequest struct {
	Items  []ChannelPriceInput `json:"items" validate:"required,min=1,dive"`
	Reason string              `json:"reason"`
}

type ChannelPriceBatchResponse struct {
	Prices  []ChannelPrice        `json:"prices"`
	History []ChannelPriceHistory `json:"history"`
}

const (
	PricingModeMarkup = "markup"
	PricingModeProfit = "profit"
)

type RoundingPolicy string

const (
	RoundNone     RoundingPolicy = "none"
	RoundHundred  RoundingPolicy = "hundred"
	RoundThousand RoundingPolicy = "thousand"
	RoundCustom   RoundingPolicy = "custom"
)

type ChannelPricingRequest struct {
	RecipeIDs          []string         `json:"recipe_ids" validate:"required,min=1,dive,required"`
	ChannelIDs         []string         `json:"channel_ids" validate:"required,min=1,dive,required"`
	Mode               string           `json:"mode" validate:"required,oneof=markup profit"`
	MarkupPercentage   decimal.Decimal  `json:"markup_percentage"`
	TargetProfitAmount decimal.Decimal  `json:"target_profit_amount"`
	Rounding           RoundingPolicy   `json:"rounding" validate:"omitempty,oneof=none hundred thousand custom"`
	RoundingIncrement  decimal.Decimal  `json:"rounding_increment"`
	TaxRate            *decimal.Decimal `json:"tax_rate,omitempty"`
	Reason             string           `json:"reason"`
}

type ChannelPricingRow struct {
	RecipeID       string           `json:"recipe_id"`
	RecipeName     string           `json:"recipe_name"`
	ChannelID      string           `json:"channel_id"`
	ChannelName    string           `json:"channel_name"`
	CogsPerServing decimal.Decimal  `json:"cogs_per_serving"`
	BasePrice      decimal.Decimal  `json:"base_price"`
	CurrentPrice   *decimal.Decimal `json:"current_price,omitempty"`
	NewPrice       decimal.Decimal  `json:"new_price"`
	Commission     decimal.Decimal  `json:"commission"`
	TaxRate        decimal.Decimal  `json:"tax_rate"`
	FinalPrice     decimal.Decimal  `json:"final_price"`
	NetPrice       decimal.Decimal  `json:"net_price"`
	Profit         decimal.Decimal  `json:"profit"`
	ProfitMargin   decimal.Decimal  `json:"profit_margin"`
}

type ChannelPricingPreview struct {
	Rows   []ChannelPricingRow `json:"rows"`
	Errors []RowError          `json:"errors"`
}

type ChannelPricingResult struct {
	BulkResult
	Rows []ChannelPricingRow `json:"rows"`
}

const (
	SkuIngredient = "ingredient"
	SkuRecipe     = "recipe"
)

type SkuSettings struct {
	BusinessID           string `json:"business_id"`
	IngredientPrefix     string `json:"ingredient_prefix"`
	RecipePrefix         string `json:"recipe_prefix"`
	NumberPadding        int    `json:"number_padding"`
	Separator            string `json:"separator"`
	NextIngredientNumber int64  `json:"next_ingredient_number"`
	NextRecipeNumber     int64  `json:"next_recipe_number"`
}

type SkuSettingsUpdateRequest struct {
	IngredientPrefix *string `json:"ingredient_prefix,omitempty" validate:"omitempty,max=16"`
	RecipePrefix     *string `json:"recipe_prefix,omitempty" validate:"omitempty,max=16"`
	NumberPadding    *int    `json:"number_padding,omitempty" validate:"omitempty,min=1,max=12"`
	Separator        *string `json:"separator,omitempty" validate:"omitempty,max=4"`
}

type SkuBackfillResponse struct {
	Ingredients int `json:"ingredients"`
	Recipes     int `json:"recipes"`
}

const (
	RoundingRound = "round"
	RoundingFloor = "floor"
	RoundingCeil  = "ceil"

	CurrencyBefore = "before"
	CurrencyAfter  = "after"
)

type DecimalSettings struct {
	BusinessID        string `json:"business_id"`
	DecimalPlaces     int    `json:"decimal_places" validate:"min=0,max=6"`
	RoundingMethod    string `json:"rounding_method" validate:"required,oneof=round floor ceil"`
	ThousandSeparator string `json:"thousand_separator" validate:"max=2"`
	DecimalSeparator  string `json:"decimal_separator" validate:"required,max=2"`
	CurrencySymbol    string `json:"currency_symbol" validate:"max=8"`
	CurrencyPosition  string `json:"currency_position" validate:"required,oneof=before after"`
	ShowTrailingZeros bool   `json:"show_trailing_zeros"`
}

func DefaultSkuSettings(businessID string) SkuSettings {
	return SkuSettings{
		BusinessID:           businessID,
		IngredientPrefix:     "ING",
		RecipePrefix:         "RCP",
		NumberPadding:        4,
		Separator:            "-",
		NextIngredientNumber: 1,
		NextRecipeNumber:     1,
	}
}

func DefaultDecimalSettings(businessID string) DecimalSettings {
	return DecimalSettings{
		BusinessID:        businessID,
		DecimalPlaces:     0,
		RoundingMethod:    RoundingRound,
		ThousandSeparator: ".",
		DecimalSeparator:  ",",
		CurrencySymbol:    "Rp",
		CurrencyPosition:  CurrencyBefore,
		ShowTrailingZeros: false,
	}
}

type FormatPriceRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	OmitSymbol    bool            `json:"omit_symbol"`
	DecimalPlaces *int            `json:"decimal_places,omitempty" validate:"omitempty,min=0,max=6"`
}

type FormatPriceResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	Formatted string          `json:"formatted"`
}

type ActivityLog struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
