package chat

import (
	"encoding/json"

	"ChatRelay/tools/errs"
)

// Wire frames are plain JSON, one frame per websocket message.
// 入站帧未识别的字段直接忽略。

type InboundFrame struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

type RosterEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type PresenceFrame struct {
	Online []RosterEntry `json:"online"`
}

type DeliveryFrame struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
}

func ParseInbound(raw []byte) (*InboundFrame, error) {
	f := &InboundFrame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.ErrMalformedFrame.WithDetail(err.Error())
	}
	return f, nil
}

func BuildPresence(roster []RosterEntry) []byte {
	if roster == nil {
		roster = []RosterEntry{}
	}
	data, _ := json.Marshal(PresenceFrame{Online: roster})
	return data
}

func BuildDelivery(text, senderID, messageID, recipientID string) []byte {
	data, _ := json.Marshal(DeliveryFrame{
		Text:      text,
		Sender:    senderID,
		ID:        messageID,
		Recipient: recipientID,
	})
	return data
}
