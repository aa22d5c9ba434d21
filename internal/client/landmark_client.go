package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"drowsiness-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// LandmarkClient клиент Python сервиса разметки лица
type LandmarkClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewLandmarkClient создает новый клиент сервиса разметки
func NewLandmarkClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *LandmarkClient {
	return &LandmarkClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// DetectLandmarks отправляет кадр в сервис разметки и возвращает точки лица
func (c *LandmarkClient) DetectLandmarks(imageData []byte, filename string) (*models.LandmarkAPIResponse, error) {
	c.logger.Debugf("Отправка кадра %s (%d байт) в сервис разметки", filename, len(imageData))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	imageWriter, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field для кадра: %w", err)
	}
	if _, err := imageWriter.Write(imageData); err != nil {
		return nil, fmt.Errorf("ошибка записи данных кадра: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/landmarks", c.baseURL)
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var apiResponse models.LandmarkAPIResponse
	if err := c.do(req, &apiResponse); err != nil {
		return nil, err
	}

	c.logger.Debugf("Сервис разметки ответил: face_detected=%t, точек=%d", apiResponse.FaceDetected, len(apiResponse.Landmarks))
	return &apiResponse, nil
}

// CheckHealth проверяет состояние сервиса разметки
func (c *LandmarkClient) CheckHealth() (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса разметки")

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	var healthResponse models.HealthResponse
	if err := c.do(req, &healthResponse); err != nil {
		return nil, err
	}
	return &healthResponse, nil
}

func (c *LandmarkClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервис разметки вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}
	return nil
}
