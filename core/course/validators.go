package course

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	lessonTypeTag  = "lessontype"
	lessonTypeText = "invalid lesson type"

	videoURLTag  = "videourl"
	videoURLText = "a video URL is required for video lessons"

	contentTag  = "lessoncontent"
	contentText = "content is required for text lessons"
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(lessonTypeTag, lessonTypeValidation)
	core.RegisterCustomTranslation(lessonTypeTag, lessonTypeText)

	core.Validate.RegisterStructValidation(lessonStructValidation, NewLesson{}, UpdateLesson{})
	core.RegisterCustomTranslation(videoURLTag, videoURLText)
	core.RegisterCustomTranslation(contentTag, contentText)
}

// Custom Validators

// lessonTypeValidation checks that the provided lesson type is text or video.
func lessonTypeValidation(fl validator.FieldLevel) bool {
	return LessonType(fl.Field().String()).Valid()
}

// lessonStructValidation enforces that each lesson type carries its body:
// video lessons need VideoURL, text lessons need Content.
func lessonStructValidation(sl validator.StructLevel) {
	var (
		typ               LessonType
		content, videoURL string
	)
	switch l := sl.Current().Interface().(type) {
	case NewLesson:
		typ, content, videoURL = l.Type, l.Content, l.VideoURL
	case UpdateLesson:
		typ, content, videoURL = l.Type, l.Content, l.VideoURL
	}

	switch typ {
	case LessonVideo:
		if videoURL == "" {
			sl.ReportError(videoURL, "video_url", "VideoURL", videoURLTag, "")
		}
	case LessonText:
		if content == "" {
			sl.ReportError(content, "content", "Content", contentTag, "")
		}
	}
}
