package chat

import (
	"context"

	"ChatRelay/tools/errs"
)

// MessageGateway is the external persistence collaborator: durably store one
// message and hand back its identifier.
type MessageGateway interface {
	SaveMessage(ctx context.Context, senderID, recipientID, text string) (string, error)
}

// Router takes inbound frames, persists them, and fans the delivery event out
// to every live connection of the recipient.
type Router struct {
	reg *Registry
	gw  MessageGateway
}

func NewRouter(reg *Registry, gw MessageGateway) *Router {
	return &Router{reg: reg, gw: gw}
}

// HandleInbound processes one frame from conn. The returned error is for the
// caller's log only — nothing is ever surfaced back to the sender over the
// socket, and the connection stays open in every case.
//
// 流程：解析 -> 鉴权 -> 落库 -> 查收件人连接 -> 投递。
// 收件人不在线不算错误：消息已持久化，只是不做实时投递。
func (r *Router) HandleInbound(ctx context.Context, conn *WsConn, raw []byte) error {
	f, err := ParseInbound(raw)
	if err != nil {
		return err
	}
	if f.Recipient == "" || f.Text == "" {
		return errs.ErrMalformedFrame.WithDetail("missing recipient or text")
	}

	senderID, _, bound := conn.Identity()
	if !bound {
		return errs.ErrUnauthorizedSend
	}

	msgID, err := r.gw.SaveMessage(ctx, senderID, f.Recipient, f.Text)
	if err != nil {
		return errs.WrapMsg(err, "persist message")
	}

	// 落库之后再查注册表：发送方中途断开也不影响已完成的写入，
	// 只是投递结果按当下在线状态计算。
	payload := BuildDelivery(f.Text, senderID, msgID, f.Recipient)
	for _, rc := range r.reg.ListByUser(f.Recipient) {
		rc.Enqueue(payload)
	}
	return nil
}
