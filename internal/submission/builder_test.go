package submission

import (
	"context"
	"testing"

	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/ocr"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/verify"
	"github.com/stretchr/testify/require"
)

type staticEngine struct {
	text string
}

func (e staticEngine) ExtractText(ctx context.Context, imagePath string) (string, error) {
	return e.text, nil
}

func testEconomy(t *testing.T) *config.Economy {
	t.Helper()
	eco, err := config.LoadEconomy("missing-economy.json")
	require.NoError(t, err)
	return eco
}

func newBuilder(engine ocr.Engine, eco *config.Economy) *Builder {
	ability := ocr.Unavailable()
	if engine != nil {
		ability = ocr.NewCapability(engine)
	}
	return &Builder{
		Verifier: &verify.Verifier{OCR: ability},
		Economy:  eco,
	}
}

func TestBuildAnimalSettlesFromExtractedIncome(t *testing.T) {
	b := newBuilder(staticEngine{text: "Serviço concluído com sucesso! 5 animais entregues. Renda: $160"}, testEconomy(t))

	r, err := b.Build(context.Background(), Claim{
		PlayerName:  "Maria",
		ServiceType: store.ServiceAnimal,
		ItemType:    "Vaca",
	}, "rid-1", "shot.png")
	require.NoError(t, err)

	require.Equal(t, int64(5), r.Quantity)
	require.Equal(t, "160", r.FarmIncome.String())
	require.Equal(t, "60", r.PlayerPayment.String())
	require.Equal(t, store.StatusPendingApproval, r.Status)
}

func TestBuildAnimalWithoutSuccessMarkerIsRejected(t *testing.T) {
	b := newBuilder(staticEngine{text: "5 animais. Renda: $160"}, testEconomy(t))

	_, err := b.Build(context.Background(), Claim{
		PlayerName:  "Maria",
		ServiceType: store.ServiceAnimal,
		ItemType:    "Vaca",
	}, "rid-2", "shot.png")
	require.ErrorIs(t, err, ErrRejected)
}

func TestBuildPlantWithoutOCRGoesToHumanReview(t *testing.T) {
	b := newBuilder(nil, testEconomy(t))

	r, err := b.Build(context.Background(), Claim{
		PlayerName:  "Maria",
		ServiceType: store.ServicePlant,
		ItemType:    "Milho",
		Quantity:    200,
	}, "rid-3", "shot.png")
	require.NoError(t, err)

	require.False(t, r.AutoAccept)
	require.Equal(t, "30", r.PlayerPayment.String())
	require.NotEmpty(t, r.VerificationMessage)
}

func TestBuildPlantInsufficientInventoryIsRejected(t *testing.T) {
	b := newBuilder(staticEngine{text: "Inventário: Milho 150x"}, testEconomy(t))

	_, err := b.Build(context.Background(), Claim{
		PlayerName:  "Maria",
		ServiceType: store.ServicePlant,
		ItemType:    "Milho",
		Quantity:    200,
	}, "rid-4", "shot.png")
	require.ErrorIs(t, err, ErrRejected)
}

func TestBuildRejectsNonPositivePlantQuantity(t *testing.T) {
	b := newBuilder(nil, testEconomy(t))

	_, err := b.Build(context.Background(), Claim{
		PlayerName:  "Maria",
		ServiceType: store.ServicePlant,
		ItemType:    "Milho",
		Quantity:    0,
	}, "rid-5", "shot.png")
	require.ErrorIs(t, err, ErrRejected)
}
