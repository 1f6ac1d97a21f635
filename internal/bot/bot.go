// Package bot implements the tenant-facing chat flow: authorization by
// phone number, apartment and intercom listings, snapshot requests. Door
// opening from the menu goes through the action resolver, the same
// idempotent path the call notifications use.
package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/jmehdipour/domofon-gateway/internal/session"
	"github.com/jmehdipour/domofon-gateway/internal/token"
	"github.com/jmehdipour/domofon-gateway/internal/util"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

const (
	menuApartments = "🏠 Посмотреть квартиры"
	menuDomofons   = "🚪 Посмотреть домофоны"

	// Concierge panels expose a camera but no openable door.
	conciergeMarker = "консьерж"
)

const welcomeText = "👋 Добро пожаловать в систему управления домофоном!\n\n" +
	"🔐 С помощью этого бота вы сможете:\n" +
	"• Просматривать снимки с камер\n" +
	"• Открывать двери\n" +
	"• Получать уведомления о звонках\n\n" +
	"📱 Для начала работы, пожалуйста, поделитесь номером телефона."

const helpText = "🤖 *Команды бота:*\n\n" +
	"/start - Начать работу с ботом\n" +
	"/help - Показать эту справку\n" +
	"/domofons - Показать список доступных домофонов\n" +
	"/apartments - Показать список квартир\n\n" +
	"*Как пользоваться:*\n" +
	"1. Отправьте свой номер телефона для авторизации\n" +
	"2. Используйте команду /domofons для просмотра списка\n" +
	"3. Нажимайте на кнопки для получения снимков и открытия дверей"

// AccessAPI is the slice of the access client the chat flow needs.
type AccessAPI interface {
	CheckTenantByPhone(ctx context.Context, phone string) (model.TenantIdentity, error)
	CameraSnapshot(ctx context.Context, deviceID, tenantID int64) (model.SnapshotReference, error)
	ListApartments(ctx context.Context, tenantID int64) ([]model.Apartment, error)
	ListDevices(ctx context.Context, apartmentID, tenantID int64) ([]model.Device, error)
}

// Flow routes chat messages. Tenant identity lives in the explicit
// session store, never in package state.
type Flow struct {
	access   AccessAPI
	sessions *session.Store
	log      *zap.Logger
}

func NewFlow(api AccessAPI, sessions *session.Store, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}

	return &Flow{
		access:   api,
		sessions: sessions,
		log:      log.With(zap.String("component", "bot")),
	}
}

// HandleMessage dispatches one inbound chat message (command, contact, or
// menu button).
func (f *Flow) HandleMessage(ctx context.Context, b *telego.Bot, msg *telego.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	switch {
	case msg.Contact != nil:
		f.handleContact(ctx, b, msg)
	case strings.HasPrefix(msg.Text, "/start"):
		f.handleStart(ctx, b, msg)
	case strings.HasPrefix(msg.Text, "/help"):
		f.reply(ctx, b, msg.Chat.ID, helpText)
	case strings.HasPrefix(msg.Text, "/apartments"), msg.Text == menuApartments:
		f.handleApartments(ctx, b, msg.Chat.ID, chatID)
	case strings.HasPrefix(msg.Text, "/domofons"), msg.Text == menuDomofons:
		f.handleDomofons(ctx, b, msg.Chat.ID, chatID)
	}
}

func (f *Flow) handleStart(ctx context.Context, b *telego.Bot, msg *telego.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	f.log.Info("chat started", zap.String("chat_id", chatID))

	if _, ok := f.sessions.Tenant(chatID); ok {
		f.sendMainMenu(ctx, b, msg.Chat.ID)
		return
	}

	keyboard := tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton("Отправить номер телефона").WithRequestContact(),
		),
	).WithOneTimeKeyboard()

	_, err := b.SendMessage(ctx, tu.Message(tu.ID(msg.Chat.ID), welcomeText).WithReplyMarkup(keyboard))
	if err != nil {
		f.log.Error("send welcome failed", zap.Error(err))
	}
}

func (f *Flow) handleContact(ctx context.Context, b *telego.Bot, msg *telego.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	phone := util.NormalizePhone(msg.Contact.PhoneNumber)
	if !util.ValidPhone(phone) {
		f.reply(ctx, b, msg.Chat.ID, "❌ Неверный формат номера телефона")
		return
	}

	ident, err := f.access.CheckTenantByPhone(ctx, phone)
	if err != nil {
		f.log.Error("phone authorization failed", zap.String("chat_id", chatID), zap.Error(err))
		f.reply(ctx, b, msg.Chat.ID, "❌ Ошибка авторизации. Попробуйте позже или обратитесь в поддержку.")
		return
	}

	f.sessions.Bind(chatID, ident.TenantID)
	f.log.Info("chat authorized",
		zap.String("chat_id", chatID),
		zap.Int64("tenant_id", ident.TenantID),
		zap.Bool("privileged", ident.Privileged),
	)

	f.sendMainMenu(ctx, b, msg.Chat.ID)
}

func (f *Flow) sendMainMenu(ctx context.Context, b *telego.Bot, chatID int64) {
	keyboard := tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(menuApartments)),
		tu.KeyboardRow(tu.KeyboardButton(menuDomofons)),
	).WithResizeKeyboard()

	_, err := b.SendMessage(ctx, tu.Message(tu.ID(chatID), "Выберите действие:").WithReplyMarkup(keyboard))
	if err != nil {
		f.log.Error("send menu failed", zap.Error(err))
	}
}

func (f *Flow) handleApartments(ctx context.Context, b *telego.Bot, chatID int64, chatKey string) {
	tenantID, ok := f.sessions.Tenant(chatKey)
	if !ok {
		f.reply(ctx, b, chatID, "❌ Вы не авторизованы. Используйте /start для авторизации.")
		return
	}

	apartments, err := f.access.ListApartments(ctx, tenantID)
	if err != nil {
		f.log.Error("list apartments failed", zap.Int64("tenant_id", tenantID), zap.Error(err))
		f.reply(ctx, b, chatID, "❌ Ошибка получения списка. Попробуйте позже или обратитесь в поддержку.")
		return
	}
	if len(apartments) == 0 {
		f.reply(ctx, b, chatID, "У вас нет доступных квартир")
		return
	}

	f.reply(ctx, b, chatID, FormatApartments(apartments))
}

func (f *Flow) handleDomofons(ctx context.Context, b *telego.Bot, chatID int64, chatKey string) {
	tenantID, ok := f.sessions.Tenant(chatKey)
	if !ok {
		f.reply(ctx, b, chatID, "❌ Вы не авторизованы. Используйте /start для авторизации.")
		return
	}

	apartments, err := f.access.ListApartments(ctx, tenantID)
	if err != nil {
		f.log.Error("list apartments failed", zap.Int64("tenant_id", tenantID), zap.Error(err))
		f.reply(ctx, b, chatID, "❌ Ошибка получения списка. Попробуйте позже или обратитесь в поддержку.")
		return
	}
	if len(apartments) == 0 {
		f.reply(ctx, b, chatID, "❌ У вас нет доступных квартир")
		return
	}

	var rows [][]telego.InlineKeyboardButton
	for _, apartment := range apartments {
		devices, err := f.access.ListDevices(ctx, apartment.ID, tenantID)
		if err != nil {
			f.log.Warn("list devices failed",
				zap.Int64("apartment_id", apartment.ID), zap.Error(err))
			continue
		}

		for _, device := range devices {
			rows = append(rows, DeviceButtons(device))
		}
	}

	if len(rows) == 0 {
		f.reply(ctx, b, chatID, "❌ Не найдено доступных домофонов для ваших квартир")
		return
	}

	_, err = b.SendMessage(ctx, tu.Message(tu.ID(chatID), "🏠 Доступные домофоны:").
		WithReplyMarkup(tu.InlineKeyboard(rows...)))
	if err != nil {
		f.log.Error("send domofons failed", zap.Error(err))
	}
}

// SendSnapshot fetches and delivers a camera snapshot for the browse
// flow's snapshot button.
func (f *Flow) SendSnapshot(ctx context.Context, b *telego.Bot, chatID int64, deviceID int64) {
	chatKey := strconv.FormatInt(chatID, 10)
	tenantID, ok := f.sessions.Tenant(chatKey)
	if !ok {
		f.reply(ctx, b, chatID, "❌ Ошибка: пользователь не авторизован")
		return
	}

	snapshot, _ := f.access.CameraSnapshot(ctx, deviceID, tenantID)
	if snapshot.Empty() {
		f.reply(ctx, b, chatID, "❌ Нет данных от камеры")
		return
	}

	_, err := b.SendPhoto(ctx, tu.Photo(tu.ID(chatID), tu.FileFromURL(snapshot.ImageURL)).
		WithCaption("📷 Снимок с камеры"))
	if err != nil {
		f.log.Error("send snapshot failed", zap.Int64("device_id", deviceID), zap.Error(err))
		f.reply(ctx, b, chatID, "❌ Ошибка получения снимка")
	}
}

func (f *Flow) reply(ctx context.Context, b *telego.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown))
	if err != nil {
		f.log.Error("send reply failed", zap.Error(err))
	}
}

// DeviceButtons builds the inline controls for one device: snapshot
// always, open unless it is a concierge panel.
func DeviceButtons(device model.Device) []telego.InlineKeyboardButton {
	snapshotBtn := tu.InlineKeyboardButton("📷 Камера " + device.Name).
		WithCallbackData(token.Encode(token.KindSnapshot, device.ID))

	if strings.Contains(strings.ToLower(device.Name), conciergeMarker) {
		return tu.InlineKeyboardRow(snapshotBtn)
	}

	return tu.InlineKeyboardRow(
		snapshotBtn,
		tu.InlineKeyboardButton("🔓 Открыть").
			WithCallbackData(token.Encode(token.KindOpen, device.ID)),
	)
}

// FormatApartments renders the apartment listing with per-tenant roles
// and formatted phone numbers.
func FormatApartments(apartments []model.Apartment) string {
	var sb strings.Builder
	sb.WriteString("🏘 *Информация о ваших квартирах*\n\n")

	for i, apartment := range apartments {
		sb.WriteString("*Квартира #" + strconv.Itoa(i+1) + "*\n")

		address := apartment.Location.ReadableAddress
		if address == "" {
			address = "Адрес не указан"
		}
		sb.WriteString("📍 Адрес: `" + address + "`\n")

		if apartment.Location.ApartmentsNumber != "" {
			sb.WriteString("🚪 Номер квартиры: `" + apartment.Location.ApartmentsNumber + "`\n")
		}
		if apartment.PaidBefore != "" {
			sb.WriteString("💳 Оплачено до: `" + apartment.PaidBefore + "`\n")
		}

		if len(apartment.Tenants) > 0 {
			sb.WriteString("\n👥 *Жильцы:*\n")
			for _, tenant := range apartment.Tenants {
				role := "👤 Жилец"
				if tenant.Owner() {
					role = "👑 Владелец"
				}
				sb.WriteString("• " + strings.TrimSpace(tenant.Name) + " (" + role + ")\n")
				sb.WriteString("  📱 `" + util.FormatPhone(tenant.Phone) + "`\n")
			}
		}

		sb.WriteString("\n" + strings.Repeat("─", 30) + "\n\n")
	}

	sb.WriteString("*Доступные команды:*\n" +
		"📱 /domofons - Управление домофонами\n" +
		"ℹ️ /help - Справка по командам\n")

	return sb.String()
}
