package gctasks

import (
	"context"
	"fmt"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Client enqueues HTTP callback tasks, optionally scheduled in the future.
// The booking module uses it to call itself back when a booking's hold
// window elapses.
type Client interface {
	CreateTask(ctx context.Context, queueID string, request Request) error
	DeferCreateTaskInTime(ctx context.Context, queueID string, request Request, schedule time.Time) error
	Close() error
}

const locationID = "asia-southeast2"

type Request struct {
	URL    string
	Method cloudtaskspb.HttpMethod
	Header map[string]string
	Body   []byte
}

type tasksClient struct {
	projectID string
	logger    *logrus.Logger
	client    *cloudtasks.Client
}

func NewGCTasks(logger *logrus.Logger, projectID string, credsJSON []byte) Client {
	c, err := cloudtasks.NewClient(context.Background(), option.WithCredentialsJSON(credsJSON))
	if err != nil {
		logger.WithField("object", "gctasks").Error(err)
		return nil
	}

	return &tasksClient{
		logger:    logger,
		client:    c,
		projectID: projectID,
	}
}

func (tc *tasksClient) Close() error {
	return tc.client.Close()
}

func (tc *tasksClient) queuePath(queueID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", tc.projectID, locationID, queueID)
}

// CreateTask implements Client.
func (tc *tasksClient) CreateTask(ctx context.Context, queueID string, request Request) error {
	return tc.create(ctx, queueID, request, nil)
}

// DeferCreateTaskInTime implements Client.
func (tc *tasksClient) DeferCreateTaskInTime(ctx context.Context, queueID string, request Request, schedule time.Time) error {
	return tc.create(ctx, queueID, request, timestamppb.New(schedule))
}

func (tc *tasksClient) create(ctx context.Context, queueID string, request Request, schedule *timestamppb.Timestamp) error {
	task := &cloudtaskspb.Task{
		MessageType: &cloudtaskspb.Task_HttpRequest{
			HttpRequest: &cloudtaskspb.HttpRequest{
				Url:        request.URL,
				HttpMethod: request.Method,
				Headers:    request.Header,
				Body:       request.Body,
			},
		},
		ScheduleTime: schedule,
	}

	_, err := tc.client.CreateTask(ctx, &cloudtaskspb.CreateTaskRequest{
		Parent: tc.queuePath(queueID),
		Task:   task,
	})
	if err != nil {
		tc.logger.WithFields(logrus.Fields{
			"object":  "gctasks",
			"queueId": queueID,
		}).Error(err)
		return err
	}

	return nil
}
