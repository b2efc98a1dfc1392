package messaging

import (
	"context"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
)

// stubQueueAPI implements sqs.API with overridable function fields. Calling
// an unset field panics, so tests set only what they exercise.
type stubQueueAPI struct {
	createQueue        func(*awssqs.CreateQueueInput) (*awssqs.CreateQueueOutput, error)
	deleteQueue        func(*awssqs.DeleteQueueInput) (*awssqs.DeleteQueueOutput, error)
	getQueueUrl        func(*awssqs.GetQueueUrlInput) (*awssqs.GetQueueUrlOutput, error)
	getQueueAttributes func(*awssqs.GetQueueAttributesInput) (*awssqs.GetQueueAttributesOutput, error)
	setQueueAttributes func(*awssqs.SetQueueAttributesInput) (*awssqs.SetQueueAttributesOutput, error)
	sendMessage        func(*awssqs.SendMessageInput) (*awssqs.SendMessageOutput, error)
	sendMessageBatch   func(*awssqs.SendMessageBatchInput) (*awssqs.SendMessageBatchOutput, error)
	receiveMessage     func(*awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error)
	deleteMessage      func(*awssqs.DeleteMessageInput) (*awssqs.DeleteMessageOutput, error)
}

func (s *stubQueueAPI) CreateQueue(ctx context.Context, params *awssqs.CreateQueueInput, optFns ...func(*awssqs.Options)) (*awssqs.CreateQueueOutput, error) {
	return s.createQueue(params)
}

func (s *stubQueueAPI) DeleteQueue(ctx context.Context, params *awssqs.DeleteQueueInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteQueueOutput, error) {
	return s.deleteQueue(params)
}

func (s *stubQueueAPI) GetQueueUrl(ctx context.Context, params *awssqs.GetQueueUrlInput, optFns ...func(*awssqs.Options)) (*awssqs.GetQueueUrlOutput, error) {
	return s.getQueueUrl(params)
}

func (s *stubQueueAPI) GetQueueAttributes(ctx context.Context, params *awssqs.GetQueueAttributesInput, optFns ...func(*awssqs.Options)) (*awssqs.GetQueueAttributesOutput, error) {
	return s.getQueueAttributes(params)
}

func (s *stubQueueAPI) SetQueueAttributes(ctx context.Context, params *awssqs.SetQueueAttributesInput, optFns ...func(*awssqs.Options)) (*awssqs.SetQueueAttributesOutput, error) {
	return s.setQueueAttributes(params)
}

func (s *stubQueueAPI) SendMessage(ctx context.Context, params *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error) {
	return s.sendMessage(params)
}

func (s *stubQueueAPI) SendMessageBatch(ctx context.Context, params *awssqs.SendMessageBatchInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageBatchOutput, error) {
	return s.sendMessageBatch(params)
}

func (s *stubQueueAPI) ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error) {
	return s.receiveMessage(params)
}

func (s *stubQueueAPI) DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error) {
	return s.deleteMessage(params)
}
