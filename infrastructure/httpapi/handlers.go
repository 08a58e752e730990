package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ahrav/go-agrisense/internal/application"
	"github.com/ahrav/go-agrisense/internal/domain"
)

type verifyExpertRequest struct {
	ExpertID    string `json:"expert_id"`
	Credentials string `json:"credentials"`
}

type termRequest struct {
	Term string `json:"term"`
}

type termResponse struct {
	Kind string `json:"kind"`
	Term string `json:"term"`
}

type vocabularyResponse struct {
	Kind  string   `json:"kind"`
	Terms []string `json:"terms"`
}

type bestAnalysisResponse struct {
	TemplateID uint64 `json:"template_id"`
}

type recommendationCreatedResponse struct {
	RecommendationID uint64 `json:"recommendation_id"`
}

type feedbackRequest struct {
	Rating  uint    `json:"rating"`
	Comment *string `json:"comment"`
}

func idParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, invalidInput(err)
	}
	return id, nil
}

func (s *Server) verifyExpert(c echo.Context) error {
	var req verifyExpertRequest
	if err := c.Bind(&req); err != nil {
		return invalidInput(err)
	}
	expert, err := s.advisor.VerifyExpert(c.Request().Context(), caller(c), req.ExpertID, req.Credentials)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, expert)
}

func (s *Server) getExpert(c echo.Context) error {
	expert, ok, err := s.advisor.Expert(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrExpertNotFound
	}
	return c.JSON(http.StatusOK, expert)
}

func (s *Server) addVocabularyTerm(c echo.Context) error {
	var req termRequest
	if err := c.Bind(&req); err != nil {
		return invalidInput(err)
	}
	kind := domain.VocabularyKind(c.Param("kind"))
	term, err := s.advisor.AddVocabularyTerm(c.Request().Context(), caller(c), kind, req.Term)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, termResponse{Kind: string(kind), Term: term})
}

func (s *Server) getVocabulary(c echo.Context) error {
	kind := domain.VocabularyKind(c.Param("kind"))
	terms, err := s.advisor.Vocabulary(c.Request().Context(), kind)
	if err != nil {
		return err
	}
	if terms == nil {
		terms = []string{}
	}
	return c.JSON(http.StatusOK, vocabularyResponse{Kind: string(kind), Terms: terms})
}

func (s *Server) registerFarm(c echo.Context) error {
	var in application.FarmInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(err)
	}
	p, err := s.advisor.RegisterFarm(c.Request().Context(), caller(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) updateFarm(c echo.Context) error {
	var in application.FarmInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(err)
	}
	p, err := s.advisor.UpdateFarm(c.Request().Context(), caller(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) getFarm(c echo.Context) error {
	p, ok, err := s.advisor.Participant(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrFarmNotFound
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) publishTemplate(c echo.Context) error {
	var in application.TemplateInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(err)
	}
	t, err := s.advisor.PublishTemplate(c.Request().Context(), caller(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) listTemplates(c echo.Context) error {
	all, err := s.advisor.Templates(c.Request().Context())
	if err != nil {
		return err
	}
	if all == nil {
		all = []domain.Template{}
	}
	return c.JSON(http.StatusOK, all)
}

func (s *Server) getTemplate(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	t, ok, err := s.advisor.Template(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAnalysisNotFound
	}
	return c.JSON(http.StatusOK, t)
}

// findBestAnalysis reads the weather from the query string:
// temperature, humidity and uv_index are all required.
func (s *Server) findBestAnalysis(c echo.Context) error {
	var reading domain.WeatherReading
	err := echo.QueryParamsBinder(c).
		MustInt("temperature", &reading.Temperature).
		MustUint("humidity", &reading.Humidity).
		MustUint("uv_index", &reading.UVIndex).
		BindError()
	if err != nil {
		return invalidInput(err)
	}

	id, err := s.advisor.FindBestAnalysis(c.Request().Context(), caller(c), reading)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bestAnalysisResponse{TemplateID: id})
}

func (s *Server) generateRecommendation(c echo.Context) error {
	var reading domain.WeatherReading
	if err := c.Bind(&reading); err != nil {
		return invalidInput(err)
	}
	id, err := s.advisor.GenerateRecommendation(c.Request().Context(), caller(c), reading)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, recommendationCreatedResponse{RecommendationID: id})
}

func (s *Server) getRecommendation(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	r, ok, err := s.advisor.Recommendation(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrRecommendationNotFound
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) submitFeedback(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return invalidInput(err)
	}
	if err := s.advisor.SubmitFeedback(c.Request().Context(), caller(c), id, req.Rating, req.Comment); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getFeedback(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if _, ok, err := s.advisor.Recommendation(ctx, id); err != nil {
		return err
	} else if !ok {
		return domain.ErrRecommendationNotFound
	}

	f, ok, err := s.advisor.Feedback(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no feedback recorded")
	}
	return c.JSON(http.StatusOK, f)
}
