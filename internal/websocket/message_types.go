package websocket

// Сообщения от клиента
const (
	// EventUserAnswer - ответ игрока на текущий вопрос
	EventUserAnswer = "user:answer"

	// EventUserHeartbeat - heartbeat клиента, продлевает присутствие
	EventUserHeartbeat = "user:heartbeat"

	// EventUserSubscribe и EventUserUnsubscribe меняют набор тем соединения
	EventUserSubscribe   = "user:subscribe"
	EventUserUnsubscribe = "user:unsubscribe"
)

// Служебные сообщения сервера
const (
	// EventServerHeartbeat - ответ на heartbeat с серверным временем
	EventServerHeartbeat = "server:heartbeat"

	// EventServerError - ошибка обработки сообщения клиента
	EventServerError = "server:error"

	// EventBufferWarning - клиент не успевает читать
	EventBufferWarning = "server:buffer_warning"

	// EventAnswerResult - итог приема ответа, отправленного через WebSocket
	EventAnswerResult = "answer:result"
)
