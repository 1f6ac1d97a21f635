package bot

import (
	"strings"
	"testing"

	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/jmehdipour/domofon-gateway/internal/token"
)

func TestDeviceButtons(t *testing.T) {
	row := DeviceButtons(model.Device{ID: 7, Name: "Подъезд 1"})
	if len(row) != 2 {
		t.Fatalf("buttons = %d, want snapshot + open", len(row))
	}

	kind, id, err := token.Decode(row[0].CallbackData)
	if err != nil || kind != token.KindSnapshot || id != 7 {
		t.Fatalf("snapshot button token = (%q, %d, %v)", kind, id, err)
	}

	kind, id, err = token.Decode(row[1].CallbackData)
	if err != nil || kind != token.KindOpen || id != 7 {
		t.Fatalf("open button token = (%q, %d, %v)", kind, id, err)
	}
}

func TestDeviceButtonsConcierge(t *testing.T) {
	row := DeviceButtons(model.Device{ID: 9, Name: "Консьерж главный"})
	if len(row) != 1 {
		t.Fatalf("buttons = %d, want snapshot only for concierge", len(row))
	}

	kind, _, err := token.Decode(row[0].CallbackData)
	if err != nil || kind != token.KindSnapshot {
		t.Fatalf("concierge button = (%q, %v), want snapshot", kind, err)
	}
}

func TestFormatApartments(t *testing.T) {
	out := FormatApartments([]model.Apartment{
		{
			ID:         1,
			PaidBefore: "2025-12-31",
			Location: model.ApartmentLocation{
				ReadableAddress:  "ул. Ленина, 1",
				ApartmentsNumber: "42",
			},
			Tenants: []model.ApartmentTenant{
				{Name: "Иван ", Phone: "79002288610", Status: model.TenantStatus{Role: 1}},
				{Name: "Мария", Phone: "79156562250"},
			},
		},
	})

	for _, want := range []string{
		"Квартира #1",
		"ул. Ленина, 1",
		"42",
		"2025-12-31",
		"👑 Владелец",
		"👤 Жилец",
		"+7 (900) 228-86-10",
		"/domofons",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("listing lacks %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "Иван ") && !strings.Contains(out, "• Иван (") {
		t.Fatal("tenant name not trimmed")
	}
}

func TestFormatApartmentsMissingAddress(t *testing.T) {
	out := FormatApartments([]model.Apartment{{ID: 1}})
	if !strings.Contains(out, "Адрес не указан") {
		t.Fatalf("missing-address placeholder absent:\n%s", out)
	}
}
