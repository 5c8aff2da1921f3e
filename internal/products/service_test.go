package product

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/types"
)

func validCreateInput() CreateProductInput {
	return CreateProductInput{
		Name:         "Camisa Roja",
		Description:  "Algodón",
		BrandName:    "Acme",
		RegularPrice: dec("250.00"),
		Stock:        4,
	}
}

func TestCreateProductPersistsImagesAndVariants(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	category := mustCategory(t, env.conn, "ropa")

	input := validCreateInput()
	input.CategoryID = &category.ID
	input.Images = []ImageInput{
		{URL: "https://cdn.example/b.png", Position: intPtr(1)},
		{URL: "/uploads/a.png", Position: intPtr(0)},
		{URL: ""},
	}
	input.Variants = []VariantInput{{Size: strPtr("M"), Stock: 2}, {Size: strPtr("L"), Price: decPtr("260"), Stock: 1}}

	out, err := env.svc.CreateProduct(context.Background(), vendor.ID, input)
	require.NoError(t, err)

	assert.Equal(t, "camisa-roja", out.Slug)
	assert.Equal(t, enums.ProductStatusPublished.String(), out.Status)
	require.NotNil(t, out.BrandName)
	assert.Equal(t, "Acme", *out.BrandName)
	require.NotNil(t, out.Category)
	assert.Equal(t, category.ID, out.Category.ID)
	require.Len(t, out.Images, 2)
	assert.Equal(t, "/uploads/a.png", out.Images[0].URL)
	assert.Equal(t, "https://cdn.example/b.png", out.Images[1].URL)
	assert.Len(t, out.Variants, 2)
	assert.True(t, out.EffectivePrice.Equal(dec("250")))
}

func TestCreateProductSlugSuffixes(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	ctx := context.Background()

	want := []string{"camisa-roja", "camisa-roja-2", "camisa-roja-3"}
	for _, slug := range want {
		out, err := env.svc.CreateProduct(ctx, vendor.ID, validCreateInput())
		if err != nil {
			t.Fatalf("create product: %v", err)
		}
		if out.Slug != slug {
			t.Fatalf("expected slug %q, got %q", slug, out.Slug)
		}
	}
}

func TestCreateProductReusesBrand(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	ctx := context.Background()

	first, err := env.svc.CreateProduct(ctx, vendor.ID, validCreateInput())
	require.NoError(t, err)
	input := validCreateInput()
	input.BrandName = "  ACME "
	second, err := env.svc.CreateProduct(ctx, vendor.ID, input)
	require.NoError(t, err)

	assert.Equal(t, *first.BrandID, *second.BrandID)
	var brands int64
	require.NoError(t, env.conn.Model(&models.Brand{}).Count(&brands).Error)
	assert.EqualValues(t, 1, brands)
}

func TestCreateProductValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*CreateProductInput)
		field  string
	}{
		"short name":       {func(in *CreateProductInput) { in.Name = "ab" }, "name"},
		"missing brand":    {func(in *CreateProductInput) { in.BrandName = " " }, "brandName"},
		"zero price":       {func(in *CreateProductInput) { in.RegularPrice = dec("0") }, "regularPrice"},
		"negative sale":    {func(in *CreateProductInput) { in.SalePrice = decPtr("-1") }, "salePrice"},
		"negative stock":   {func(in *CreateProductInput) { in.Stock = -1 }, "stock"},
		"bad status":       {func(in *CreateProductInput) { in.Status = "sold" }, "status"},
		"relative url":     {func(in *CreateProductInput) { in.Images = []ImageInput{{URL: "img.png"}} }, "images[0].url"},
		"negative pos":     {func(in *CreateProductInput) { in.Images = []ImageInput{{URL: "/a.png", Position: intPtr(-1)}} }, "images[0].position"},
		"variant stock":    {func(in *CreateProductInput) { in.Variants = []VariantInput{{Stock: -2}} }, "variants[0].stock"},
		"variant price":    {func(in *CreateProductInput) { in.Variants = []VariantInput{{Price: decPtr("-3")}} }, "variants[0].price"},
		"unknown category": {func(in *CreateProductInput) { id := uuid.New(); in.CategoryID = &id }, "categoryId"},
		"foreign key": {func(in *CreateProductInput) {
			key := uuid.NewString() + "/victim.png"
			in.Images = []ImageInput{{URL: "https://cdn.example/victim.png", StorageKey: &key}}
		}, "images[0].storageKey"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			vendor := mustVendor(t, env.conn, "tienda")
			input := validCreateInput()
			tc.mutate(&input)

			_, err := env.svc.CreateProduct(context.Background(), vendor.ID, input)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Contains(t, typed.Details(), tc.field)
		})
	}
}

func TestCreateProductCompensatesImageFailure(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	require.NoError(t, env.conn.Exec(
		`CREATE TRIGGER reject_images BEFORE INSERT ON product_images BEGIN SELECT RAISE(ABORT, 'boom'); END;`,
	).Error)

	own := vendor.ID.String() + "/a.png"
	ownLocal := "uploads/" + vendor.ID.String() + "/b.png"
	input := validCreateInput()
	input.Images = []ImageInput{
		{URL: "https://cdn.example/a.png", StorageKey: &own},
		{URL: "/uploads/b.png", StorageKey: &ownLocal},
	}
	input.Variants = []VariantInput{{Size: strPtr("M"), Stock: 1}}

	_, err := env.svc.CreateProduct(context.Background(), vendor.ID, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var products, variants int64
	require.NoError(t, env.conn.Model(&models.Product{}).Count(&products).Error)
	require.NoError(t, env.conn.Model(&models.ProductVariant{}).Count(&variants).Error)
	assert.Zero(t, products)
	assert.Zero(t, variants)
	assert.ElementsMatch(t, []string{own, ownLocal}, env.remover.keys)
}

func TestUpdateProductPartial(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	ctx := context.Background()

	created, err := env.svc.CreateProduct(ctx, vendor.ID, validCreateInput())
	require.NoError(t, err)

	out, err := env.svc.UpdateProduct(ctx, owner(vendor), created.ID, UpdateProductInput{
		Stock: intPtr(9),
	})
	require.NoError(t, err)
	assert.Equal(t, 9, out.Stock)
	assert.Equal(t, created.Slug, out.Slug)
	assert.Equal(t, created.Name, out.Name)
	require.NotNil(t, out.BrandName)
	assert.Equal(t, "Acme", *out.BrandName)
}

func TestCreateProductIgnoresLongerSlugs(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	mustProduct(t, env.conn, vendor, "camisa-roja-deluxe")
	mustProduct(t, env.conn, vendor, "camisa-roja-2b")

	out, err := env.svc.CreateProduct(context.Background(), vendor.ID, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, "camisa-roja", out.Slug)

	again, err := env.svc.CreateProduct(context.Background(), vendor.ID, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, "camisa-roja-2", again.Slug)
}

func TestUpdateProductCaseOnlyRenameKeepsSlug(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	ctx := context.Background()

	first, err := env.svc.CreateProduct(ctx, vendor.ID, validCreateInput())
	require.NoError(t, err)
	second, err := env.svc.CreateProduct(ctx, vendor.ID, validCreateInput())
	require.NoError(t, err)
	require.Equal(t, "camisa-roja-2", second.Slug)

	out, err := env.svc.UpdateProduct(ctx, owner(vendor), first.ID, UpdateProductInput{Name: strPtr("Camisa roja")})
	require.NoError(t, err)
	assert.Equal(t, "camisa-roja", out.Slug)
	assert.Equal(t, "Camisa roja", out.Name)

	out, err = env.svc.UpdateProduct(ctx, owner(vendor), second.ID, UpdateProductInput{Name: strPtr("CAMISA ROJA")})
	require.NoError(t, err)
	assert.Equal(t, "camisa-roja-2", out.Slug)
}

func TestUpdateProductRenameRecomputesSlug(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	ctx := context.Background()

	created, err := env.svc.CreateProduct(ctx, vendor.ID, validCreateInput())
	require.NoError(t, err)

	same, err := env.svc.UpdateProduct(ctx, owner(vendor), created.ID, UpdateProductInput{Name: strPtr("Camisa Roja ")})
	require.NoError(t, err)
	assert.Equal(t, "camisa-roja", same.Slug)

	renamed, err := env.svc.UpdateProduct(ctx, owner(vendor), created.ID, UpdateProductInput{Name: strPtr("Camisa Azul")})
	require.NoError(t, err)
	assert.Equal(t, "camisa-azul", renamed.Slug)
	assert.Equal(t, "Camisa Azul", renamed.Name)
}

func TestUpdateProductClearsBrandAndReplacesImages(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	ctx := context.Background()

	oldKey := vendor.ID.String() + "/old.png"
	keptKey := vendor.ID.String() + "/kept.png"
	input := validCreateInput()
	input.Images = []ImageInput{
		{URL: "https://cdn.example/old.png", StorageKey: &oldKey},
		{URL: "https://cdn.example/kept.png", StorageKey: &keptKey},
	}
	input.Variants = []VariantInput{{Size: strPtr("S"), Stock: 1}}
	created, err := env.svc.CreateProduct(ctx, vendor.ID, input)
	require.NoError(t, err)

	images := []ImageInput{{URL: "https://cdn.example/kept.png", StorageKey: &keptKey}, {URL: ""}}
	variants := []VariantInput{}
	out, err := env.svc.UpdateProduct(ctx, owner(vendor), created.ID, UpdateProductInput{
		BrandName: types.Nullable[string]{Present: true},
		Images:    &images,
		Variants:  &variants,
	})
	require.NoError(t, err)

	assert.Nil(t, out.BrandID)
	require.Len(t, out.Images, 1)
	assert.Equal(t, keptKey, *out.Images[0].StorageKey)
	assert.Empty(t, out.Variants)
	assert.Equal(t, []string{oldKey}, env.remover.keys)
}

// sellingCategories reports every category as present and, while answering,
// records a sale against productID the way a concurrent mark-sold would.
type sellingCategories struct {
	conn      *gorm.DB
	productID uuid.UUID
}

func (c sellingCategories) Exists(ctx context.Context, _ uuid.UUID) (bool, error) {
	err := c.conn.WithContext(ctx).Exec(
		"UPDATE products SET stock = stock - 1, sales_count = sales_count + 1 WHERE id = ?", c.productID,
	).Error
	return true, err
}

func TestUpdateProductKeepsConcurrentSaleCounters(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	category := mustCategory(t, env.conn, "ropa")
	product := mustProduct(t, env.conn, vendor, "gorra", withStock(5))

	svc, err := NewService(env.repo, db.Wrap(env.conn), sellingCategories{conn: env.conn, productID: product.ID}, env.remover, nil)
	require.NoError(t, err)

	out, err := svc.UpdateProduct(context.Background(), owner(vendor), product.ID, UpdateProductInput{
		CategoryID: types.Nullable[uuid.UUID]{Present: true, Value: &category.ID},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Category)
	assert.Equal(t, category.ID, out.Category.ID)

	var reloaded models.Product
	require.NoError(t, env.conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 4, reloaded.Stock)
	assert.Equal(t, 1, reloaded.SalesCount)
	assert.Equal(t, "gorra", reloaded.Name)
}

func TestUpdateProductRejectsForeignStorageKey(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	other := mustVendor(t, env.conn, "otra")
	product := mustProduct(t, env.conn, vendor, "gorra")

	victim := other.ID.String() + "/victim.png"
	images := []ImageInput{{URL: "https://cdn.example/victim.png", StorageKey: &victim}}
	_, err := env.svc.UpdateProduct(context.Background(), owner(vendor), product.ID, UpdateProductInput{Images: &images})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Details(), "images[0].storageKey")

	var n int64
	require.NoError(t, env.conn.Model(&models.ProductImage{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateProductAuthorization(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	other := mustVendor(t, env.conn, "otra")
	product := mustProduct(t, env.conn, vendor, "gorra")
	ctx := context.Background()

	_, err := env.svc.UpdateProduct(ctx, owner(other), product.ID, UpdateProductInput{Stock: intPtr(2)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = env.svc.UpdateProduct(ctx, owner(vendor), uuid.New(), UpdateProductInput{Stock: intPtr(2)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	out, err := env.svc.UpdateProduct(ctx, rootActor(), product.ID, UpdateProductInput{Stock: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Stock)
}

func TestDeleteProductCascades(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	ctx := context.Background()

	key := vendor.ID.String() + "/a.png"
	input := validCreateInput()
	input.Images = []ImageInput{{URL: "https://cdn.example/a.png", StorageKey: &key}}
	input.Variants = []VariantInput{{Size: strPtr("M"), Stock: 1}}
	created, err := env.svc.CreateProduct(ctx, vendor.ID, input)
	require.NoError(t, err)
	require.NoError(t, env.conn.Create(&models.ProductEvent{ProductID: created.ID, VendorID: vendor.ID}).Error)
	require.NoError(t, env.svc.RecordSale(ctx, vendor.ID, created.ID, SaleInput{}))

	require.NoError(t, env.svc.DeleteProduct(ctx, owner(vendor), created.ID))

	for _, model := range []any{&models.Product{}, &models.ProductImage{}, &models.ProductVariant{}, &models.ProductSale{}, &models.ProductEvent{}} {
		var n int64
		require.NoError(t, env.conn.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows left", model)
	}
	assert.Equal(t, []string{key}, env.remover.keys)

	err = env.svc.DeleteProduct(ctx, owner(vendor), created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteProductLeavesForeignObjects(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	other := mustVendor(t, env.conn, "otra")
	product := mustProduct(t, env.conn, vendor, "gorra")

	own := vendor.ID.String() + "/own.png"
	victim := other.ID.String() + "/victim.png"
	require.NoError(t, env.repo.CreateImages(context.Background(), product.ID, []models.ProductImage{
		{URL: "https://cdn.example/own.png", StorageKey: &own},
		{URL: "https://cdn.example/victim.png", StorageKey: &victim, Position: 1},
	}))

	require.NoError(t, env.svc.DeleteProduct(context.Background(), owner(vendor), product.ID))
	assert.Equal(t, []string{own}, env.remover.keys)
}

func TestDeleteProductForbiddenForOtherVendor(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	other := mustVendor(t, env.conn, "otra")
	product := mustProduct(t, env.conn, vendor, "gorra")

	err := env.svc.DeleteProduct(context.Background(), owner(other), product.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestGetProductRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	other := mustVendor(t, env.conn, "otra")
	product := mustProduct(t, env.conn, vendor, "gorra")
	ctx := context.Background()

	out, err := env.svc.GetProduct(ctx, owner(vendor), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, out.ID)
	require.NotNil(t, out.Vendor)
	assert.Equal(t, "tienda", out.Vendor.Slug)

	_, err = env.svc.GetProduct(ctx, owner(other), product.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = env.svc.GetProduct(ctx, owner(vendor), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListProductsScopesToVendor(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	other := mustVendor(t, env.conn, "otra")
	mustProduct(t, env.conn, vendor, "gorra")
	mustProduct(t, env.conn, vendor, "bufanda", withStatus(enums.ProductStatusDraft))
	mustProduct(t, env.conn, other, "zapato")
	ctx := context.Background()

	otherID := other.ID
	own, err := env.svc.ListProducts(ctx, owner(vendor), ListProductsInput{VendorID: &otherID})
	require.NoError(t, err)
	assert.Len(t, own, 2)
	for _, p := range own {
		assert.Equal(t, vendor.ID, p.VendorID)
	}

	draft := enums.ProductStatusDraft
	drafts, err := env.svc.ListProducts(ctx, owner(vendor), ListProductsInput{Status: &draft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "bufanda", drafts[0].Name)

	all, err := env.svc.ListProducts(ctx, rootActor(), ListProductsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := env.svc.ListProducts(ctx, rootActor(), ListProductsInput{VendorID: &otherID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "zapato", filtered[0].Name)
}

func TestRecordSale(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	product := mustProduct(t, env.conn, vendor, "gorra", withStock(2))
	ctx := context.Background()

	expires := env.now.Add(time.Hour)
	require.NoError(t, env.conn.Model(product).Updates(map[string]any{"sale_price": dec("80"), "sale_expires_at": expires}).Error)

	require.NoError(t, env.svc.RecordSale(ctx, vendor.ID, product.ID, SaleInput{Quantity: intPtr(3)}))

	var reloaded models.Product
	require.NoError(t, env.conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 0, reloaded.Stock)
	assert.Equal(t, 3, reloaded.SalesCount)

	var sale models.ProductSale
	require.NoError(t, env.conn.First(&sale, "product_id = ?", product.ID).Error)
	assert.Equal(t, 3, sale.Quantity)
	assert.True(t, sale.Amount.Equal(dec("240")), "amount %s", sale.Amount)

	require.NoError(t, env.svc.RecordSale(ctx, vendor.ID, product.ID, SaleInput{Amount: decPtr("50")}))
	var amounts []string
	require.NoError(t, env.conn.Model(&models.ProductSale{}).Order("created_at ASC").Pluck("amount", &amounts).Error)
	require.Len(t, amounts, 2)
	assert.True(t, dec(amounts[1]).Equal(dec("50")))
}

func TestRecordSaleRejections(t *testing.T) {
	env := newTestEnv(t)
	vendor := mustVendor(t, env.conn, "tienda")
	other := mustVendor(t, env.conn, "otra")
	product := mustProduct(t, env.conn, vendor, "gorra")
	ctx := context.Background()

	err := env.svc.RecordSale(ctx, other.ID, product.ID, SaleInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = env.svc.RecordSale(ctx, vendor.ID, product.ID, SaleInput{Quantity: intPtr(0)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = env.svc.RecordSale(ctx, vendor.ID, product.ID, SaleInput{Amount: decPtr("-1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
