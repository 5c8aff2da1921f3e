package product

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
)

func newPublicTestService(t *testing.T, env *testEnv) PublicService {
	t.Helper()
	svc, err := NewPublicService(env.repo, "https://mercado.example/")
	require.NoError(t, err)
	return svc
}

func names(rows []ProductDTO) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func TestListHomeFiltersAndOrders(t *testing.T) {
	env := newTestEnv(t)
	svc := newPublicTestService(t, env)
	vendor := mustVendor(t, env.conn, "tienda")
	ropa := mustCategory(t, env.conn, "ropa")

	mustProduct(t, env.conn, vendor, "camisa", withStock(5), withCategory(ropa.ID))
	mustProduct(t, env.conn, vendor, "camiseta", withStock(9), withCategory(ropa.ID))
	mustProduct(t, env.conn, vendor, "gorra", withStock(1))
	mustProduct(t, env.conn, vendor, "borrador", withStock(50), withStatus(enums.ProductStatusDraft))
	ctx := context.Background()

	all, err := svc.ListHome(ctx, HomeQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"camiseta", "camisa", "gorra"}, names(all))

	searched, err := svc.ListHome(ctx, HomeQuery{Search: "CAMI"})
	require.NoError(t, err)
	assert.Equal(t, []string{"camiseta", "camisa"}, names(searched))

	byCategory, err := svc.ListHome(ctx, HomeQuery{CategorySlug: "ropa"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	none, err := svc.ListHome(ctx, HomeQuery{CategorySlug: "nada"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDetailBuildsWhatsAppLink(t *testing.T) {
	env := newTestEnv(t)
	svc := newPublicTestService(t, env)
	vendor := mustVendor(t, env.conn, "tienda")
	mustProduct(t, env.conn, vendor, "gorra")
	mustProduct(t, env.conn, vendor, "oculto", withStatus(enums.ProductStatusArchived))
	ctx := context.Background()

	out, err := svc.Detail(ctx, "gorra")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out.WhatsAppLink, "https://wa.me/5215550001111?text="), out.WhatsAppLink)

	parsed, err := url.Parse(out.WhatsAppLink)
	require.NoError(t, err)
	assert.Equal(t,
		"Hola tienda, estoy interesado en el producto: gorra. Enlace: https://mercado.example/p/gorra",
		parsed.Query().Get("text"))

	_, err = svc.Detail(ctx, "oculto")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSimilarMatchesCategoryOrBrand(t *testing.T) {
	env := newTestEnv(t)
	svc := newPublicTestService(t, env)
	vendor := mustVendor(t, env.conn, "tienda")
	ropa := mustCategory(t, env.conn, "ropa")
	brand := &models.Brand{VendorID: vendor.ID, Name: "Acme", Slug: "acme"}
	require.NoError(t, env.conn.Create(brand).Error)

	base := mustProduct(t, env.conn, vendor, "camisa", withCategory(ropa.ID))
	require.NoError(t, env.conn.Model(base).Update("brand_id", brand.ID).Error)
	mustProduct(t, env.conn, vendor, "pantalon", withCategory(ropa.ID), withSales(1))
	branded := mustProduct(t, env.conn, vendor, "gorra", withSales(7))
	require.NoError(t, env.conn.Model(branded).Update("brand_id", brand.ID).Error)
	mustProduct(t, env.conn, vendor, "taza", withSales(20))

	out, err := svc.Similar(context.Background(), "camisa")
	require.NoError(t, err)
	assert.Equal(t, []string{"gorra", "pantalon"}, names(out))
}

func TestSimilarWithoutTaxonomyReturnsOtherProducts(t *testing.T) {
	env := newTestEnv(t)
	svc := newPublicTestService(t, env)
	vendor := mustVendor(t, env.conn, "tienda")
	mustProduct(t, env.conn, vendor, "camisa")
	mustProduct(t, env.conn, vendor, "taza", withSales(3))

	out, err := svc.Similar(context.Background(), "camisa")
	require.NoError(t, err)
	assert.Equal(t, []string{"taza"}, names(out))
}

func TestMoreFromVendorAndBestSellers(t *testing.T) {
	env := newTestEnv(t)
	svc := newPublicTestService(t, env)
	vendor := mustVendor(t, env.conn, "tienda")
	other := mustVendor(t, env.conn, "otra")
	mustProduct(t, env.conn, vendor, "camisa", withSales(1))
	mustProduct(t, env.conn, vendor, "gorra", withSales(4))
	mustProduct(t, env.conn, other, "zapato", withSales(9))
	ctx := context.Background()

	more, err := svc.MoreFromVendor(ctx, "camisa")
	require.NoError(t, err)
	assert.Equal(t, []string{"gorra"}, names(more))

	best, err := svc.BestSellers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"zapato", "gorra", "camisa"}, names(best))
}

func TestListByVendorOnlyPublished(t *testing.T) {
	env := newTestEnv(t)
	svc := newPublicTestService(t, env)
	vendor := mustVendor(t, env.conn, "tienda")
	mustProduct(t, env.conn, vendor, "camisa", withStock(1))
	mustProduct(t, env.conn, vendor, "gorra", withStock(3))
	mustProduct(t, env.conn, vendor, "borrador", withStatus(enums.ProductStatusDraft))

	out, err := svc.ListByVendor(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"gorra", "camisa"}, names(out))

	empty, err := svc.ListByVendor(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWhatsAppMessageAppendsBuyerPhone(t *testing.T) {
	msg := WhatsAppMessage("Ana", "Gorra", "https://mercado.example/p/gorra", "5215550009999")
	assert.Equal(t,
		"Hola Ana, estoy interesado en el producto: Gorra. Enlace: https://mercado.example/p/gorra\n\nMi número de contacto: 5215550009999",
		msg)
}

func TestVendorContactNumberFallsBackToUserPhone(t *testing.T) {
	phone := "5215550002222"
	v := &models.VendorProfile{User: &models.User{Phone: &phone}}
	assert.Equal(t, phone, VendorContactNumber(v))

	v.WhatsApp = "5215550003333"
	assert.Equal(t, "5215550003333", VendorContactNumber(v))

	assert.Empty(t, VendorContactNumber(nil))
}
