package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/agrolink-backend/internal/chat"
	"github.com/mvalverde/agrolink-backend/internal/orders"
	"github.com/mvalverde/agrolink-backend/internal/requests"
	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/pagination"
)

// Read projections returned by the listing endpoints. Domain models stay
// free of json tags; the HTTP layer owns the wire shape.

type cropView struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Amount int       `json:"amount"`
	Image  *string   `json:"image,omitempty"`
}

func cropToView(c models.Crop) cropView {
	return cropView{ID: c.ID, Name: c.Name, Amount: c.Amount, Image: c.Image}
}

type requestItemView struct {
	ID       uuid.UUID `json:"id"`
	CropID   uuid.UUID `json:"crop_id"`
	CropName string    `json:"crop_name"`
	Amount   int       `json:"amount"`
	Image    *string   `json:"image,omitempty"`
}

type requestView struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Date      time.Time         `json:"date"`
	Price     decimal.Decimal   `json:"price"`
	Approved  bool              `json:"approved"`
	CreatedAt time.Time         `json:"created_at"`
	Items     []requestItemView `json:"items"`
}

type requestPageView struct {
	Requests   []requestView `json:"requests"`
	NextCursor *string       `json:"next_cursor,omitempty"`
}

func requestListToView(list *requests.RequestList) requestPageView {
	page := requestPageView{Requests: make([]requestView, 0, len(list.Requests))}
	for _, row := range list.Requests {
		view := requestView{
			ID:        row.Request.ID,
			UserID:    row.Request.UserID,
			Date:      row.Request.Date,
			Price:     row.Request.Price,
			Approved:  row.Request.Approved,
			CreatedAt: row.Request.CreatedAt,
			Items:     make([]requestItemView, 0, len(row.Items)),
		}
		for _, item := range row.Items {
			view.Items = append(view.Items, requestItemView{
				ID:       item.Item.ID,
				CropID:   item.Item.CropID,
				CropName: item.Crop.Name,
				Amount:   item.Item.Amount,
				Image:    item.Item.Image,
			})
		}
		page.Requests = append(page.Requests, view)
	}
	page.NextCursor = encodeNextCursor(list.NextCursor)
	return page
}

type orderView struct {
	ID        uuid.UUID `json:"id"`
	CropID    uuid.UUID `json:"crop_id"`
	CropName  string    `json:"crop_name"`
	Amount    int       `json:"amount"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

type buyerOrderPageView struct {
	Orders     []orderView `json:"orders"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

func buyerOrderListToView(list *orders.BuyerOrderList) buyerOrderPageView {
	page := buyerOrderPageView{Orders: make([]orderView, 0, len(list.Orders))}
	for _, row := range list.Orders {
		page.Orders = append(page.Orders, orderView{
			ID:        row.Order.ID,
			CropID:    row.Order.CropID,
			CropName:  row.Crop.Name,
			Amount:    row.Order.Amount,
			Approved:  row.Order.Approved,
			CreatedAt: row.Order.CreatedAt,
		})
	}
	page.NextCursor = encodeNextCursor(list.NextCursor)
	return page
}

type adminOrderView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	CropID    uuid.UUID `json:"crop_id"`
	CropName  string    `json:"crop_name"`
	Amount    int       `json:"amount"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

type adminOrderPageView struct {
	Orders     []adminOrderView `json:"orders"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}

func adminOrderListToView(list *orders.AdminOrderList) adminOrderPageView {
	page := adminOrderPageView{Orders: make([]adminOrderView, 0, len(list.Orders))}
	for _, row := range list.Orders {
		page.Orders = append(page.Orders, adminOrderView{
			ID:        row.Order.ID,
			UserID:    row.User.ID,
			UserName:  row.User.Name,
			CropID:    row.Order.CropID,
			CropName:  row.Crop.Name,
			Amount:    row.Order.Amount,
			Approved:  row.Order.Approved,
			CreatedAt: row.Order.CreatedAt,
		})
	}
	page.NextCursor = encodeNextCursor(list.NextCursor)
	return page
}

type roomView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func roomToView(room *models.ChatRoom) roomView {
	return roomView{ID: room.ID, Name: room.Name, CreatedAt: room.CreatedAt}
}

type messageView struct {
	ID         uuid.UUID      `json:"id"`
	ChatRoomID uuid.UUID      `json:"chat_room_id"`
	SenderID   uuid.UUID      `json:"sender_id"`
	SenderName string         `json:"sender_name,omitempty"`
	SenderRole enums.UserRole `json:"sender_role,omitempty"`
	Content    string         `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
}

func messageToView(row chat.MessageWithSender) messageView {
	return messageView{
		ID:         row.Message.ID,
		ChatRoomID: row.Message.ChatRoomID,
		SenderID:   row.Message.SenderID,
		SenderName: row.SenderName,
		SenderRole: row.SenderRole,
		Content:    row.Message.Content,
		CreatedAt:  row.Message.CreatedAt,
	}
}

func encodeNextCursor(cursor *pagination.Cursor) *string {
	if cursor == nil {
		return nil
	}
	encoded := pagination.EncodeCursor(*cursor)
	return &encoded
}
