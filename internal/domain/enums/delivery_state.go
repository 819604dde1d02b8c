package enums

type DeliveryState string

const (
	DeliveryStateSent      DeliveryState = "sent"
	DeliveryStateDelivered DeliveryState = "delivered"
	DeliveryStateRead      DeliveryState = "read"
)
