package room

import "github.com/wfunc/nightwatch/audit"

// FanOut selects the recipients of an outbound message.
type FanOut int

const (
	All FanOut = iota
	AllExceptSender
	SenderOnly
	TargetOnly
	AdminOnly
)

func (f FanOut) String() string {
	switch f {
	case All:
		return "all"
	case AllExceptSender:
		return "all_except_sender"
	case SenderOnly:
		return "sender_only"
	case TargetOnly:
		return "target_only"
	case AdminOnly:
		return "admin_only"
	}
	return "unknown"
}

// Message is one outbound event together with its audience.
type Message struct {
	FanOut  FanOut
	Event   string
	Payload interface{}
	// Target is the recipient for TargetOnly.
	Target string
}

type auditRecord struct {
	kind   audit.Kind
	fields audit.Fields
}

// outcome 处理结果：先发消息，再断开连接，最后写审计
type outcome struct {
	messages  []Message
	terminate []string
	audits    []auditRecord
}

func (o *outcome) send(f FanOut, event string, payload interface{}) {
	o.messages = append(o.messages, Message{FanOut: f, Event: event, Payload: payload})
}

func (o *outcome) sendTo(target, event string, payload interface{}) {
	o.messages = append(o.messages, Message{FanOut: TargetOnly, Event: event, Payload: payload, Target: target})
}

func (o *outcome) record(kind audit.Kind, fields audit.Fields) {
	o.audits = append(o.audits, auditRecord{kind: kind, fields: fields})
}
