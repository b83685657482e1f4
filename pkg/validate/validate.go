package validate

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterCustom 向 validator 引擎注册自定义标签：
//   - hhmm:    24 小时制 "HH:MM"
//   - isodate: "YYYY-MM-DD"
func RegisterCustom(v *validator.Validate) error {
	if err := v.RegisterValidation("hhmm", isHHMM); err != nil {
		return err
	}
	return v.RegisterValidation("isodate", isISODate)
}

// RegisterGin 向 gin 默认绑定引擎注册自定义标签
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 绑定引擎不是 validator/v10")
	}
	return RegisterCustom(v)
}

func isHHMM(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse("15:04", s)
	return err == nil && len(s) == 5
}

func isISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// FormatErrors 将校验错误格式化为可读的中文描述
func FormatErrors(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}

	msgs := make([]string, 0, len(ves))
	for _, e := range ves {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, e.Field()+" 不能为空")
		case "email":
			msgs = append(msgs, e.Field()+" 必须是邮箱格式")
		case "min":
			msgs = append(msgs, e.Field()+" 不能小于 "+e.Param())
		case "max":
			msgs = append(msgs, e.Field()+" 不能大于 "+e.Param())
		case "oneof":
			msgs = append(msgs, e.Field()+" 必须是以下之一: "+e.Param())
		case "hhmm":
			msgs = append(msgs, e.Field()+" 必须是 HH:MM 格式")
		case "isodate":
			msgs = append(msgs, e.Field()+" 必须是 YYYY-MM-DD 格式")
		case "uuid":
			msgs = append(msgs, e.Field()+" 必须是 UUID")
		default:
			msgs = append(msgs, e.Field()+" 无效")
		}
	}
	return strings.Join(msgs, "; ")
}
